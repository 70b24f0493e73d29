// Package fcall implements the call boundary between the database
// executor and managed Go extension functions: datum passing, argument
// decoding, multi-call memory regions, set-returning continuations and
// the guard bridge that converts executor error jumps into Go errors.
package fcall

import (
	"fmt"
	"math"
	"sync"
)

// Datum is the uniform value cell exchanged with the executor. Small
// scalars travel in the word itself; everything else travels as a
// handle to a boxed Go value owned by a Region.
type Datum uintptr

// NullDatum is the zero datum paired with the null flag set.
const NullDatum Datum = 0

// NullableDatum pairs a datum with its null flag, mirroring the
// executor's argument slot layout.
type NullableDatum struct {
	Value  Datum
	IsNull bool
}

// handleTable boxes Go values behind Datum handles. Handles are odd
// numbers so they can never collide with pointer-aligned by-value
// payloads.
type handleTable struct {
	mu     sync.Mutex
	next   uintptr
	values map[uintptr]any
}

var handles = &handleTable{next: 1, values: make(map[uintptr]any)}

func (t *handleTable) box(v any) Datum {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.next
	t.next += 2
	t.values[h] = v
	return Datum(h)
}

func (t *handleTable) unbox(d Datum) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.values[uintptr(d)]
	return v, ok
}

func (t *handleTable) free(d Datum) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.values, uintptr(d))
}

// BoxValue wraps v in a handle datum owned by r. The handle is released
// when r is released.
func BoxValue(r *Region, v any) Datum {
	d := handles.box(v)
	r.OnRelease(func() { handles.free(d) })
	return d
}

// UnboxValue resolves a handle datum produced by BoxValue.
func UnboxValue(d Datum) (any, bool) {
	return handles.unbox(d)
}

// DatumOf encodes a Go scalar as a datum. By-value kinds travel in the
// word; by-reference kinds are boxed into r.
func DatumOf(r *Region, v any) Datum {
	switch x := v.(type) {
	case bool:
		if x {
			return Datum(1)
		}
		return Datum(0)
	case int8:
		return Datum(uint8(x))
	case int16:
		return Datum(uint16(x))
	case int32:
		return Datum(uint32(x))
	case int64:
		return Datum(uint64(x))
	case float32:
		return Datum(math.Float32bits(x))
	case float64:
		return Datum(math.Float64bits(x))
	default:
		return BoxValue(r, v)
	}
}

// ValueOf decodes a datum into the Go type T. By-value kinds come out
// of the word; anything else is resolved through the handle table.
func ValueOf[T any](d Datum) (T, error) {
	var zero T
	switch any(zero).(type) {
	case bool:
		return any(d != 0).(T), nil
	case int8:
		return any(int8(d)).(T), nil
	case int16:
		return any(int16(d)).(T), nil
	case int32:
		return any(int32(d)).(T), nil
	case int64:
		return any(int64(d)).(T), nil
	case float32:
		return any(math.Float32frombits(uint32(d))).(T), nil
	case float64:
		return any(math.Float64frombits(uint64(d))).(T), nil
	}
	v, ok := handles.unbox(d)
	if !ok {
		return zero, fmt.Errorf("pgmantle: datum %#x is not a live value handle", uintptr(d))
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("pgmantle: datum holds %T, want %T", v, zero)
	}
	return t, nil
}
