package fcall

import "iter"

// SRFState tracks where one set-returning scan stands.
type SRFState int

const (
	// SRFFirstCall means no invocation has run yet.
	SRFFirstCall SRFState = iota
	// SRFPerCall means the scan is live and producing rows.
	SRFPerCall
	// SRFDone means the scan reported its last row. Further
	// invocations keep reporting no rows without touching the
	// released continuation.
	SRFDone
)

// continuation is the SRF state stored across invocations. It lives in
// the multi-call region; releasing the region stops the pulled
// iterator.
type continuation[T any] struct {
	state SRFState
	next  func() (T, bool)
}

// Row is one table-function result row: a value or SQL NULL per
// column.
type Row []NullableDatum

// SetOfNext drives one invocation of a SETOF-returning call.
//
// On the first invocation setup runs inside the multi-call region: it
// decodes the arguments there (per-call decoded values would not
// survive the scan) and produces the iterator, or reports that the
// optional iterator itself is absent, which ends the scan immediately
// with zero rows. Every invocation, first included, then either emits
// one encoded row (more=true) or ends the scan (more=false).
func SetOfNext[T any](fci *CallInfo, setup func(mc *Region) (iter.Seq[T], bool), encode func(r *Region, v T) Datum) (d Datum, more bool) {
	return srfStep(fci, setup, func(v T) Datum {
		return encode(fci.PerCall(), v)
	}, NullDatum)
}

// TableNext drives one invocation of a TABLE-returning call. Columns
// carry their own null flags; only the row as a whole ends the scan.
func TableNext[T any](fci *CallInfo, setup func(mc *Region) (iter.Seq[T], bool), encode func(r *Region, v T) Row) (row Row, more bool) {
	return srfStep(fci, setup, func(v T) Row {
		return encode(fci.PerCall(), v)
	}, nil)
}

// srfStep is the shared {first call, per call, done} step function.
func srfStep[T, R any](fci *CallInfo, setup func(mc *Region) (iter.Seq[T], bool), emit func(v T) R, none R) (R, bool) {
	if fci.FirstCall() {
		mc := fci.MultiCall()
		cont := &continuation[T]{state: SRFFirstCall}
		fci.cont = cont

		seq, ok := setup(mc)
		if !ok {
			cont.state = SRFDone
			fci.EndScan()
			return none, false
		}
		next, stop := iter.Pull(seq)
		mc.OnRelease(stop)
		cont.next = next
		cont.state = SRFPerCall
	}

	cont := fci.cont.(*continuation[T])
	if cont.state == SRFDone {
		return none, false
	}

	v, ok := cont.next()
	if !ok {
		cont.state = SRFDone
		cont.next = nil
		fci.EndScan()
		return none, false
	}
	return emit(v), true
}
