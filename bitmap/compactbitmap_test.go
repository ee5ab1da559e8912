package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetClearIsSet(t *testing.T) {
	b := New(130) // spans three words on a 64-bit platform
	assert.False(t, b.IsSet(0))
	assert.False(t, b.IsSet(129))

	b.Set(0)
	b.Set(63)
	b.Set(64)
	b.Set(129)

	for _, i := range []int{0, 63, 64, 129} {
		assert.True(t, b.IsSet(i), "bit %d should be set", i)
	}
	for _, i := range []int{1, 62, 65, 128} {
		assert.False(t, b.IsSet(i), "bit %d should be clear", i)
	}

	b.Clear(64)
	assert.False(t, b.IsSet(64))
	assert.True(t, b.IsSet(63))
}

func TestIndexPanics(t *testing.T) {
	b := New(8)
	assert.Panics(t, func() { b.Set(-1) })
	assert.Panics(t, func() { b.Set(8) })
	assert.Panics(t, func() { b.IsSet(8) })
	assert.Panics(t, func() { b.Clear(100) })
}

func TestClearAll(t *testing.T) {
	b := New(200)
	for i := 0; i < 200; i += 3 {
		b.Set(i)
	}
	b.ClearAll()
	for i := 0; i < 200; i++ {
		assert.False(t, b.IsSet(i))
	}
}

func TestFindNextSet(t *testing.T) {
	b := New(20)
	assert.Equal(t, 20, b.FindNextSetFrom(0), "empty bitmap has no set bit")

	b.Set(5)
	b.Set(12)
	assert.Equal(t, 5, b.FindNextSetFrom(0))
	assert.Equal(t, 5, b.FindNextSetFrom(5))
	assert.Equal(t, 12, b.FindNextSetFrom(6))
	assert.Equal(t, 20, b.FindNextSetFrom(13))
	assert.Equal(t, 12, b.FindNextSet(6, 20))
	assert.Equal(t, 12, b.FindNextSet(6, 12), "end is exclusive: bit 12 itself is out of range")
}

func TestFindPrevSet(t *testing.T) {
	b := New(20)
	assert.Equal(t, -1, b.FindPrevSetTo(19))

	b.Set(5)
	b.Set(12)
	assert.Equal(t, 12, b.FindPrevSetTo(19))
	assert.Equal(t, 12, b.FindPrevSetTo(12))
	assert.Equal(t, 5, b.FindPrevSetTo(11))
	assert.Equal(t, -1, b.FindPrevSetTo(4))
	assert.Equal(t, 5, b.FindPrevSet(11, 0))
	assert.Equal(t, 5, b.FindPrevSet(11, 5), "floor excludes bit 5 itself, and no other set bit remains")
}

func TestFindNextRunBasic(t *testing.T) {
	b := New(10)
	b.Set(3)
	b.Set(4)
	b.Set(5)

	assert.Equal(t, 3, b.FindNextRunFrom(1, 0))
	assert.Equal(t, 3, b.FindNextRunFrom(3, 0))
	assert.Equal(t, 10, b.FindNextRunFrom(4, 0), "no run of 4 exists")

	b.Set(6)
	assert.Equal(t, 3, b.FindNextRunFrom(4, 0))
	assert.Equal(t, 10, b.FindNextRunFrom(5, 0))
}

func TestFindNextRunSlide(t *testing.T) {
	b := New(6)
	for i := 0; i < 6; i++ {
		b.Set(i)
	}
	b.Clear(1) // layout: 1 0 1 1 1 1

	assert.Equal(t, 2, b.FindNextRun(4, 0, 6))
	assert.Equal(t, 6, b.FindNextRun(5, 0, 6))
}

func TestFindNextRunEdgeCases(t *testing.T) {
	b := New(10)
	for i := 0; i < 10; i++ {
		b.Set(i)
	}
	assert.Equal(t, 10, b.FindNextRun(0, 0, 10), "k=0 always fails")
	assert.Equal(t, 10, b.FindNextRun(11, 0, 10), "k larger than range always fails")
	assert.Equal(t, 0, b.FindNextRun(10, 0, 10), "whole range is one run")
}

func TestFindPrevRunBasic(t *testing.T) {
	b := New(10)
	b.Set(3)
	b.Set(4)
	b.Set(5)

	assert.Equal(t, 5, b.FindPrevRunTo(1, 9))
	assert.Equal(t, 3, b.FindPrevRunTo(3, 9))
	assert.Equal(t, -1, b.FindPrevRunTo(4, 9), "no run of 4 exists")

	b.Set(2)
	assert.Equal(t, 2, b.FindPrevRunTo(4, 9))
}

func TestFindPrevRunSlide(t *testing.T) {
	b := New(6)
	for i := 0; i < 6; i++ {
		b.Set(i)
	}
	b.Clear(4) // layout: 1 1 1 1 0 1

	assert.Equal(t, 0, b.FindPrevRun(4, 5, -1))
	assert.Equal(t, -1, b.FindPrevRun(5, 5, -1))
}

func TestWordAtAndAlignment(t *testing.T) {
	b := New(200)
	require.Equal(t, wordBits, b.Alignment())

	b.Set(70)
	aligned := b.AlignedIndex(70)
	assert.Equal(t, 70-(70%wordBits), aligned)

	word := b.WordAt(aligned)
	assert.NotZero(t, word)
	assert.Panics(t, func() { b.WordAt(aligned + 1) }, "WordAt requires an aligned index")
}

func TestFindNextRunAcrossWordBoundary(t *testing.T) {
	b := New(140)
	for i := 60; i < 70; i++ {
		b.Set(i)
	}
	assert.Equal(t, 60, b.FindNextRun(10, 0, 140))
	assert.Equal(t, 140, b.FindNextRun(11, 0, 140))
	assert.Equal(t, 61, b.FindNextRun(9, 61, 140))
}
