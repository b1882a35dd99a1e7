package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	full := seq(1, 50)
	got := Window(full, 50, 51, 52)
	require.Len(t, got, 50)
	assert.Equal(t, 3, got[0])
	assert.Equal(t, 52, got[49])
}

func TestWindowBelowCapacityKeepsEverything(t *testing.T) {
	got := Window(seq(1, 48), 50, 49, 50)
	require.Len(t, got, 50)
	assert.Equal(t, 1, got[0])

	got = Window(seq(1, 49), 50, 50, 51)
	require.Len(t, got, 50)
	assert.Equal(t, 2, got[0])
}

func TestWindowDoesNotAliasInput(t *testing.T) {
	in := make([]int, 2, 10)
	in[0], in[1] = 1, 2
	_ = Window(in, 50, 3)
	assert.Equal(t, []int{1, 2}, in)
	assert.Equal(t, []int{1, 2, 0}, in[:3])
}

func TestTail(t *testing.T) {
	assert.Equal(t, []int{4, 5}, Tail(seq(1, 5), 2))
	assert.Equal(t, []int{1, 2}, Tail([]int{1, 2}, 5))
	assert.Empty(t, Tail(seq(1, 5), 0))
}

func TestOverflow(t *testing.T) {
	assert.Nil(t, Overflow(seq(1, 50), 50))
	assert.Equal(t, []int{51, 52}, Overflow(seq(1, 52), 50))
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)
}

func TestPageToLimit(t *testing.T) {
	limit, offset := PageToLimit(3, 10)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 20, offset)

	limit, offset = PageToLimit(0, 500)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)
}

func TestParseUint64(t *testing.T) {
	id, ok := ParseUint64("42")
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)
	_, ok = ParseUint64("0")
	assert.False(t, ok)
	_, ok = ParseUint64("abc")
	assert.False(t, ok)
}
