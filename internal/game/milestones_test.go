package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_IsMilestone(t *testing.T) {
	table := DefaultTable()

	for _, n := range []int64{42, 69, 100, 200, 1000, 31415} {
		assert.True(t, table.IsMilestone(n), "n=%d", n)
	}
	for _, n := range []int64{-100, 0, 1, 41, 99, 101, 31416} {
		assert.False(t, table.IsMilestone(n), "n=%d", n)
	}
}

func TestTable_Reaction(t *testing.T) {
	table := DefaultTable()

	assert.Equal(t, ReactionTag("rocket"), table.Reaction(42))
	assert.Equal(t, ReactionTag("fireworks"), table.Reaction(1000))
	assert.Equal(t, TagHundred, table.Reaction(300))
	assert.Equal(t, TagCheck, table.Reaction(7))

	table.HundredTag = ""
	assert.Equal(t, TagCheck, table.Reaction(300))
	assert.True(t, table.IsMilestone(300))
}

func TestTable_Glyph(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, "🚀", table.Glyph("rocket"))
	assert.Equal(t, "🎉", table.Glyph("unheard_of"))
}

func TestTable_SpecialNumbersSorted(t *testing.T) {
	nums := DefaultTable().SpecialNumbers()
	assert.Len(t, nums, 17)
	assert.IsNonDecreasing(t, nums)
	assert.Equal(t, int64(42), nums[0])
}

func TestTable_Clone(t *testing.T) {
	a := DefaultTable()
	b := a.Clone()
	b.Special[7] = "seven"
	b.Glyphs["seven"] = "7"
	assert.NotContains(t, a.Special, int64(7))
	assert.NotContains(t, a.Glyphs, ReactionTag("seven"))
}

func TestIsPrime(t *testing.T) {
	primes := []int64{2, 3, 5, 7, 11, 13, 97, 7919, 2147483647}
	for _, n := range primes {
		assert.True(t, IsPrime(n), "n=%d", n)
	}
	for _, n := range []int64{-7, 0, 1, 4, 9, 15, 91, 7917} {
		assert.False(t, IsPrime(n), "n=%d", n)
	}
}

func TestIsPerfectSquare(t *testing.T) {
	for _, n := range []int64{0, 1, 4, 9, 144, 3037000499 * 3037000499} {
		assert.True(t, IsPerfectSquare(n), "n=%d", n)
	}
	for _, n := range []int64{-4, 2, 3, 8, 143, math.MaxInt64} {
		assert.False(t, IsPerfectSquare(n), "n=%d", n)
	}
}
