package bitmap

import (
	"fmt"
	"math/bits"
)

// wordBits is the machine word width backing every CompactBitmap. Run-search
// math is defined in terms of this width so it stays portable across 32 and
// 64 bit targets.
const wordBits = bits.UintSize

// CompactBitmap is a packed bit array over the index range [0, Len()).
// Set, Clear and IsSet are O(1); the FindNext*/FindPrev* search family is
// O(words scanned).
//
// The zero value is not usable; construct with New.
type CompactBitmap struct {
	numBits int
	words   []uint
}

// New returns a CompactBitmap with numBits bits, all initially clear.
func New(numBits int) *CompactBitmap {
	if numBits < 0 {
		panic(fmt.Sprintf("bitmap: negative size %d", numBits))
	}
	numWords := (numBits + wordBits - 1) / wordBits
	return &CompactBitmap{numBits: numBits, words: make([]uint, numWords)}
}

// Len returns the number of bits this bitmap tracks.
func (b *CompactBitmap) Len() int { return b.numBits }

// Alignment returns the word width in bits. Row-at-a-time consumers (e.g.
// status dumps) should iterate in strides of Alignment().
func (b *CompactBitmap) Alignment() int { return wordBits }

// AlignedIndex rounds i down to the start of the word that contains it.
func (b *CompactBitmap) AlignedIndex(i int) int {
	b.checkIndex(i)
	return i - (i % wordBits)
}

// WordAt returns the raw word beginning at alignedIdx, which must itself be
// word-aligned (a multiple of Alignment()). Used for bulk row dumps.
func (b *CompactBitmap) WordAt(alignedIdx int) uint {
	if alignedIdx%wordBits != 0 {
		panic(fmt.Sprintf("bitmap: WordAt index %d is not word-aligned", alignedIdx))
	}
	b.checkIndex(alignedIdx)
	return b.words[alignedIdx/wordBits]
}

func (b *CompactBitmap) checkIndex(i int) {
	if i < 0 || i >= b.numBits {
		panic(fmt.Sprintf("bitmap: index %d out of range [0,%d)", i, b.numBits))
	}
}

// Set marks bit i.
func (b *CompactBitmap) Set(i int) {
	b.checkIndex(i)
	b.words[i/wordBits] |= uint(1) << uint(i%wordBits)
}

// Clear unmarks bit i.
func (b *CompactBitmap) Clear(i int) {
	b.checkIndex(i)
	b.words[i/wordBits] &^= uint(1) << uint(i%wordBits)
}

// IsSet reports whether bit i is marked.
func (b *CompactBitmap) IsSet(i int) bool {
	b.checkIndex(i)
	return b.words[i/wordBits]&(uint(1)<<uint(i%wordBits)) != 0
}

// ClearAll resets every bit to zero.
func (b *CompactBitmap) ClearAll() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// FindNextSet returns the smallest i in [start, end) with IsSet(i), or end
// if there is none. Requires 0 <= start and end <= Len().
func (b *CompactBitmap) FindNextSet(start, end int) int {
	if start >= end {
		return end
	}
	arrayIdx := start / wordBits
	bitIdx := uint(start % wordBits)
	word := b.words[arrayIdx] &^ (uint(1)<<bitIdx - 1)
	for {
		if word != 0 {
			found := arrayIdx*wordBits + bits.TrailingZeros(word)
			if found >= end {
				return end
			}
			return found
		}
		arrayIdx++
		if arrayIdx >= len(b.words) || arrayIdx*wordBits >= end {
			return end
		}
		word = b.words[arrayIdx]
	}
}

// FindNextSetFrom is FindNextSet(start, Len()).
func (b *CompactBitmap) FindNextSetFrom(start int) int {
	return b.FindNextSet(start, b.numBits)
}

// FindPrevSet returns the greatest i in (floor, last] with IsSet(i), or
// floor if there is none. Requires last < Len() and floor >= -1.
func (b *CompactBitmap) FindPrevSet(last, floor int) int {
	if last <= floor {
		return floor
	}
	arrayIdx := last / wordBits
	bitIdx := uint(last % wordBits)
	mask := uint(1)<<(bitIdx+1) - 1
	word := b.words[arrayIdx] & mask
	for {
		if word != 0 {
			pos := arrayIdx*wordBits + (wordBits - 1 - bits.LeadingZeros(word))
			if pos <= floor {
				return floor
			}
			return pos
		}
		arrayIdx--
		if arrayIdx < 0 || arrayIdx*wordBits+wordBits-1 <= floor {
			return floor
		}
		word = b.words[arrayIdx]
	}
}

// FindPrevSetTo is FindPrevSet(last, -1).
func (b *CompactBitmap) FindPrevSetTo(last int) int {
	return b.FindPrevSet(last, -1)
}

// countTrailingOnes counts the run of consecutive set bits ending at lastIdx
// and extending toward lower indices. Word-at-a-time: within each word it
// aligns the bit of interest to the MSB and counts leading zeros of the
// word's complement, only crossing into the previous word when the entire
// examined span was ones.
func (b *CompactBitmap) countTrailingOnes(lastIdx int) int {
	count := 0
	idx := lastIdx
	for idx >= 0 {
		arrayIdx := idx / wordBits
		bitIdx := idx % wordBits
		width := bitIdx + 1
		shifted := b.words[arrayIdx] << uint(wordBits-1-bitIdx)
		n := bits.LeadingZeros(^shifted)
		if n > width {
			n = width
		}
		count += n
		if n < width {
			return count
		}
		idx = arrayIdx*wordBits - 1
	}
	return count
}

// countLeadingOnes is the mirror of countTrailingOnes: the run of
// consecutive set bits starting at startIdx and extending toward higher
// indices.
func (b *CompactBitmap) countLeadingOnes(startIdx int) int {
	count := 0
	idx := startIdx
	for idx < b.numBits {
		arrayIdx := idx / wordBits
		bitIdx := idx % wordBits
		width := wordBits - bitIdx
		shifted := b.words[arrayIdx] >> uint(bitIdx)
		n := bits.TrailingZeros(^shifted)
		if n > width {
			n = width
		}
		count += n
		if n < width {
			return count
		}
		idx = (arrayIdx + 1) * wordBits
	}
	return count
}

// maskBits returns a mask with width consecutive bits set, starting at bit
// lowBit. width may equal wordBits (covering the entire word) by relying on
// Go's defined shift-overflow-to-zero semantics for unsigned shifts.
func maskBits(lowBit uint, width int) uint {
	return (uint(1)<<uint(width) - 1) << lowBit
}

// isForwardConsecutiveOnes reports whether bits [start, start+k) are all
// set, checked word-at-a-time so it never scans past the k-th bit.
func (b *CompactBitmap) isForwardConsecutiveOnes(start, k int) bool {
	idx := start
	remaining := k
	for remaining > 0 {
		arrayIdx := idx / wordBits
		bitIdx := uint(idx % wordBits)
		width := wordBits - int(bitIdx)
		if width > remaining {
			width = remaining
		}
		mask := maskBits(bitIdx, width)
		if b.words[arrayIdx]&mask != mask {
			return false
		}
		remaining -= width
		idx += width
	}
	return true
}

// isBackwardConsecutiveOnes reports whether bits [lastIdx-k+1, lastIdx] are
// all set, checked word-at-a-time from the top down.
func (b *CompactBitmap) isBackwardConsecutiveOnes(lastIdx, k int) bool {
	idx := lastIdx
	remaining := k
	for remaining > 0 {
		arrayIdx := idx / wordBits
		bitIdx := uint(idx % wordBits)
		width := int(bitIdx) + 1
		if width > remaining {
			width = remaining
		}
		lowBit := bitIdx - uint(width) + 1
		mask := maskBits(lowBit, width)
		if b.words[arrayIdx]&mask != mask {
			return false
		}
		remaining -= width
		idx -= width
	}
	return true
}

// FindNextRun returns the smallest i in [start, end-k] such that bits
// [i, i+k) are all set, or end if no such run exists (including when k <= 0
// or end-start < k).
//
// The probe advances by k - trailing_ones(probe+k-1) bits on every miss: if
// the rejected window's last t bits are set, no window starting fewer than
// k-t bits later can possibly avoid the zero that caused the rejection, so
// skipping that far is always safe.
func (b *CompactBitmap) FindNextRun(k, start, end int) int {
	if k <= 0 || end-start < k {
		return end
	}
	probe := start
	for probe+k <= end {
		next := b.FindNextSet(probe, end)
		if next+k > end {
			return end
		}
		if b.isForwardConsecutiveOnes(next, k) {
			return next
		}
		trailing := b.countTrailingOnes(next + k - 1)
		advance := k - trailing
		if advance < 1 {
			advance = 1
		}
		probe = next + advance
	}
	return end
}

// FindNextRunFrom is FindNextRun(k, start, Len()).
func (b *CompactBitmap) FindNextRunFrom(k, start int) int {
	return b.FindNextRun(k, start, b.numBits)
}

// FindPrevRun returns the greatest i in (floor, last-k+1] such that bits
// [i, i+k) are all set, or floor if no such run exists. Symmetric to
// FindNextRun.
func (b *CompactBitmap) FindPrevRun(k, last, floor int) int {
	if k <= 0 || last-floor < k {
		return floor
	}
	probe := last
	for probe-k+1 > floor {
		prev := b.FindPrevSet(probe, floor)
		if prev-k+1 <= floor {
			return floor
		}
		if b.isBackwardConsecutiveOnes(prev, k) {
			return prev - k + 1
		}
		leading := b.countLeadingOnes(prev - k + 1)
		retreat := k - leading
		if retreat < 1 {
			retreat = 1
		}
		probe = prev - retreat
	}
	return floor
}

// FindPrevRunTo is FindPrevRun(k, last, -1).
func (b *CompactBitmap) FindPrevRunTo(k, last int) int {
	return b.FindPrevRun(k, last, -1)
}
