package fcall

// TriggerResult is the opaque return contract of trigger functions.
// The wrapper passes it through unchanged; interpretation belongs to
// the host trigger protocol.
type TriggerResult struct {
	// Tuple is the row datum handed back to the trigger manager.
	// NullDatum means "skip the operation".
	Tuple Datum
}

// ReturnTrigger passes a trigger result through to the executor.
func ReturnTrigger(fci *CallInfo, tr TriggerResult) Datum {
	if tr.Tuple == NullDatum {
		fci.ReturnNull = true
	}
	return tr.Tuple
}
