package fcall

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegionTeardownOrder(t *testing.T) {
	r := NewRegion("test")
	var order []int
	r.OnRelease(func() { order = append(order, 1) })
	r.OnRelease(func() { order = append(order, 2) })
	r.OnRelease(func() { order = append(order, 3) })
	r.Release()
	require.Equal(t, []int{3, 2, 1}, order)

	// Second release is a no-op.
	r.Release()
	require.Equal(t, []int{3, 2, 1}, order)
	require.True(t, r.Released())
}

func TestRegionOnReleaseAfterRelease(t *testing.T) {
	r := NewRegion("test")
	r.Release()
	ran := false
	r.OnRelease(func() { ran = true })
	require.True(t, ran)
}

func TestDatumScalarRoundTrip(t *testing.T) {
	r := NewRegion("test")
	defer r.Release()

	i32, err := ValueOf[int32](DatumOf(r, int32(-7)))
	require.NoError(t, err)
	require.Equal(t, int32(-7), i32)

	i64, err := ValueOf[int64](DatumOf(r, int64(1<<40)))
	require.NoError(t, err)
	require.Equal(t, int64(1<<40), i64)

	f64, err := ValueOf[float64](DatumOf(r, 3.25))
	require.NoError(t, err)
	require.Equal(t, 3.25, f64)

	b, err := ValueOf[bool](DatumOf(r, true))
	require.NoError(t, err)
	require.True(t, b)
}

func TestDatumHandleLifetime(t *testing.T) {
	r := NewRegion("test")
	d := DatumOf(r, "hello")

	s, err := ValueOf[string](d)
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	r.Release()
	_, err = ValueOf[string](d)
	require.ErrorContains(t, err, "not a live value handle")
}

func TestRequiredArgNullIsFatal(t *testing.T) {
	fci := NewCallInfo("add_two", []NullableDatum{{IsNull: true}})

	bodyRan := false
	require.PanicsWithError(t,
		`pgmantle: add_two: argument "a" (position 0) is null but a value is required`,
		func() {
			v := Arg[int32](fci, 0, "a")
			bodyRan = true
			_ = v
		})
	require.False(t, bodyRan)
}

func TestOptArgNull(t *testing.T) {
	r := NewRegion("test")
	defer r.Release()
	fci := NewCallInfo("maybe", []NullableDatum{
		{IsNull: true},
		{Value: DatumOf(r, int32(9))},
	})

	require.Nil(t, OptArg[int32](fci, 0, "a"))
	b := OptArg[int32](fci, 1, "b")
	require.NotNil(t, b)
	require.Equal(t, int32(9), *b)
}

func TestVarArg(t *testing.T) {
	r := NewRegion("test")
	defer r.Release()
	fci := NewCallInfo("sum", []NullableDatum{
		{Value: DatumOf(r, int32(1))},
		{Value: DatumOf(r, int32(2))},
		{Value: DatumOf(r, int32(3))},
	})
	require.Equal(t, []int32{1, 2, 3}, VarArg[int32](fci, 0, "nums"))
}

func TestOptReturn(t *testing.T) {
	fci := NewCallInfo("maybe", nil)
	d := OptReturn[int32](fci, nil)
	require.Equal(t, NullDatum, d)
	require.True(t, fci.ReturnNull)

	v := int32(4)
	d = OptReturn(fci, &v)
	require.False(t, fci.ReturnNull)
	got, err := ValueOf[int32](d)
	require.NoError(t, err)
	require.Equal(t, int32(4), got)
}

func TestReturnNilIsFatal(t *testing.T) {
	fci := NewCallInfo("broken", nil)
	require.PanicsWithError(t, "pgmantle: broken: returned value was null", func() {
		Return(fci, nil)
	})
}

func TestGuardCatchesJump(t *testing.T) {
	d, err := Guard(func() Datum {
		Jump("division by zero")
		return Datum(1)
	})
	require.Equal(t, NullDatum, d)
	require.ErrorIs(t, err, ErrExecutorJump)
	require.ErrorContains(t, err, "division by zero")
}

func TestGuardPassesResult(t *testing.T) {
	d, err := Guard(func() Datum { return Datum(42) })
	require.NoError(t, err)
	require.Equal(t, Datum(42), d)
}

func TestGuardDoesNotCatchFatal(t *testing.T) {
	require.Panics(t, func() {
		_, _ = Guard(func() Datum {
			Fatalf("boom")
			return NullDatum
		})
	})
}
