package fcall

import (
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeInt32(r *Region, v int32) Datum { return DatumOf(r, v) }

func threeValues(mc *Region) (iter.Seq[int32], bool) {
	return slices.Values([]int32{10, 20, 30}), true
}

func TestSetOfThreeRowsThenDone(t *testing.T) {
	fci := NewCallInfo("three", nil)

	var got []int32
	for {
		d, more := SetOfNext(fci, threeValues, encodeInt32)
		if !more {
			break
		}
		v, err := ValueOf[int32](d)
		require.NoError(t, err)
		got = append(got, v)
		fci.EndCall()
	}
	require.Equal(t, []int32{10, 20, 30}, got)

	// The continuation stays done; further invocations never restart
	// the scan.
	for range 3 {
		_, more := SetOfNext(fci, threeValues, encodeInt32)
		require.False(t, more)
	}
}

func TestSetOfSetupRunsOnce(t *testing.T) {
	fci := NewCallInfo("once", nil)
	calls := 0
	setup := func(mc *Region) (iter.Seq[int32], bool) {
		calls++
		return slices.Values([]int32{1, 2}), true
	}
	for {
		_, more := SetOfNext(fci, setup, encodeInt32)
		if !more {
			break
		}
		fci.EndCall()
	}
	require.Equal(t, 1, calls)
}

func TestSetOfAbsentIteratorEndsImmediately(t *testing.T) {
	fci := NewCallInfo("absent", nil)
	setup := func(mc *Region) (iter.Seq[int32], bool) { return nil, false }

	d, more := SetOfNext(fci, setup, encodeInt32)
	require.False(t, more)
	require.Equal(t, NullDatum, d)
	require.True(t, fci.MultiCall().Released())
}

func TestSetOfMultiCallRegionReleasedAtEnd(t *testing.T) {
	fci := NewCallInfo("release", nil)
	stopped := false
	setup := func(mc *Region) (iter.Seq[int32], bool) {
		mc.OnRelease(func() { stopped = true })
		return slices.Values([]int32{1}), true
	}

	_, more := SetOfNext(fci, setup, encodeInt32)
	require.True(t, more)
	require.False(t, stopped)

	_, more = SetOfNext(fci, setup, encodeInt32)
	require.False(t, more)
	require.True(t, stopped)
}

func TestSetOfArgsDecodedInMultiCallRegion(t *testing.T) {
	outer := NewRegion("outer")
	defer outer.Release()
	fci := NewCallInfo("upto", []NullableDatum{{Value: DatumOf(outer, int32(2))}})

	var decodedIn *Region
	setup := func(mc *Region) (iter.Seq[int32], bool) {
		decodedIn = mc
		n := Arg[int32](fci, 0, "n")
		return func(yield func(int32) bool) {
			for i := int32(1); i <= n; i++ {
				if !yield(i) {
					return
				}
			}
		}, true
	}

	var got []int32
	for {
		d, more := SetOfNext(fci, setup, encodeInt32)
		if !more {
			break
		}
		v, err := ValueOf[int32](d)
		require.NoError(t, err)
		got = append(got, v)
		fci.EndCall()
	}
	require.Equal(t, []int32{1, 2}, got)
	require.Same(t, fci.MultiCall(), decodedIn)
}

type pair struct {
	id   int32
	name *string
}

func TestTableRowLevelNulls(t *testing.T) {
	fci := NewCallInfo("pairs", nil)
	alpha := "alpha"
	rows := []pair{{1, &alpha}, {2, nil}}

	setup := func(mc *Region) (iter.Seq[pair], bool) {
		return slices.Values(rows), true
	}
	encode := func(r *Region, p pair) Row {
		row := Row{{Value: DatumOf(r, p.id)}, {}}
		if p.name == nil {
			row[1].IsNull = true
		} else {
			row[1].Value = DatumOf(r, *p.name)
		}
		return row
	}

	row, more := TableNext(fci, setup, encode)
	require.True(t, more)
	require.Len(t, row, 2)
	require.False(t, row[1].IsNull)
	name, err := ValueOf[string](row[1].Value)
	require.NoError(t, err)
	require.Equal(t, "alpha", name)
	fci.EndCall()

	row, more = TableNext(fci, setup, encode)
	require.True(t, more)
	require.False(t, row[0].IsNull)
	require.True(t, row[1].IsNull)
	fci.EndCall()

	row, more = TableNext(fci, setup, encode)
	require.False(t, more)
	require.Nil(t, row)
}
