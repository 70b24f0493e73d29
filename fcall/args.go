package fcall

import "fmt"

// Arg decodes the required argument at slot i. A null slot violates
// the call contract the generated SQL promised (the function is not
// STRICT only when optional arguments exist), so it raises a fatal
// error toward the executor before the wrapped function body runs.
func Arg[T any](fci *CallInfo, i int, name string) T {
	slot := fci.ArgSlot(i)
	if slot.IsNull {
		Fatalf("%s: argument %q (position %d) is null but a value is required", fci.FuncName, name, i)
	}
	v, err := ValueOf[T](slot.Value)
	if err != nil {
		Fatalf("%s: argument %q (position %d): %v", fci.FuncName, name, i, err)
	}
	return v
}

// OptArg decodes the optional argument at slot i. A null slot decodes
// to nil.
func OptArg[T any](fci *CallInfo, i int, name string) *T {
	slot := fci.ArgSlot(i)
	if slot.IsNull {
		return nil
	}
	v, err := ValueOf[T](slot.Value)
	if err != nil {
		Fatalf("%s: argument %q (position %d): %v", fci.FuncName, name, i, err)
	}
	return &v
}

// VarArg decodes the variadic tail starting at slot i. Null elements
// inside the tail are fatal, matching required-argument semantics.
func VarArg[T any](fci *CallInfo, i int, name string) []T {
	out := make([]T, 0, fci.NumArgs()-i)
	for ; i < fci.NumArgs(); i++ {
		out = append(out, Arg[T](fci, i, fmt.Sprintf("%s[%d]", name, len(out))))
	}
	return out
}

// RawArg returns the untouched slot at position i for functions that
// take the datum level interface.
func RawArg(fci *CallInfo, i int) NullableDatum {
	return fci.ArgSlot(i)
}

// Return encodes a scalar result into the per-call region. A nil
// result from a non-optional function is a contract violation.
func Return(fci *CallInfo, v any) Datum {
	if v == nil {
		Fatalf("%s: returned value was null", fci.FuncName)
	}
	fci.ReturnNull = false
	return DatumOf(fci.PerCall(), v)
}

// ReturnNullDatum flags the call as producing SQL NULL.
func ReturnNullDatum(fci *CallInfo) Datum {
	fci.ReturnNull = true
	return NullDatum
}

// ReturnRow packs one table row for the executor shim.
func ReturnRow(fci *CallInfo, row Row) Datum {
	return BoxValue(fci.PerCall(), row)
}

// OptReturn encodes an optional scalar result: nil becomes SQL NULL.
func OptReturn[T any](fci *CallInfo, v *T) Datum {
	if v == nil {
		return ReturnNullDatum(fci)
	}
	return Return(fci, *v)
}
