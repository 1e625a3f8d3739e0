package infra

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type level int8

func TestOrderedKeyCompare(t *testing.T) {
	require.Equal(t, int64(-1), OrderedKeyCompare(1, 2))
	require.Equal(t, int64(1), OrderedKeyCompare(uint64(math.MaxUint64), 0))
	require.Equal(t, int64(0), OrderedKeyCompare(7, 7))
	require.Equal(t, int64(-1), OrderedKeyCompare("abc", "abd"))
	require.Equal(t, int64(1), OrderedKeyCompare(level(3), level(-3)))
	require.Equal(t, int64(-1), OrderedKeyCompare(math.Inf(-1), -math.MaxFloat64))
}

func TestOrderedKeyCompare_NaN(t *testing.T) {
	nan := math.NaN()
	require.Equal(t, int64(0), OrderedKeyCompare(nan, nan))
	require.Equal(t, int64(-1), OrderedKeyCompare(nan, math.Inf(-1)))
	require.Equal(t, int64(1), OrderedKeyCompare(float32(0), float32(nan)))
}

func TestReverseKeyComparator(t *testing.T) {
	reversed := ReverseKeyComparator[int](OrderedKeyCompare[int])
	require.Equal(t, int64(1), reversed(1, 2))
	require.Equal(t, int64(-1), reversed(2, 1))
	require.Equal(t, int64(0), reversed(2, 2))
}
