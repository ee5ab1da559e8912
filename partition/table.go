package partition

import (
	"fmt"

	"golang.org/x/sys/cpu"

	"github.com/ANU-350/shenfreeset/bitmap"
)

// CapacityFunc reports the current allocatable bytes in region idx. Table
// consults it only to decide whether a region qualifies as fully empty for
// the empty-interval bounds.
type CapacityFunc func(idx int) uint64

// partitionTotals groups one partition's accounting fields. Capacity/used
// are read far more often than they are written (status reporting, metrics)
// and the Mutator and Collector totals sit in the same Table, so each is
// padded to its own cache line to avoid false sharing between them under
// concurrent read-mostly access.
type partitionTotals struct {
	capacity uint64
	used     uint64
	count    int
	_        cpu.CacheLinePad
}

// Table is the two-partition bitmap plus cached interval bounds and
// accounting totals described in the package doc.
type Table struct {
	max             int
	regionSizeBytes uint64
	capacityFn      CapacityFunc

	members        [numPartitions]*bitmap.CompactBitmap
	leftmost       [numPartitions]int
	rightmost      [numPartitions]int
	leftmostEmpty  [numPartitions]int
	rightmostEmpty [numPartitions]int
	totals         [numPartitions]partitionTotals
}

// NewTable constructs a Table over maxRegions region indices. capacityFn is
// consulted by LeftmostEmpty/RightmostEmpty and must be safe to call for any
// idx in [0, maxRegions).
func NewTable(maxRegions int, regionSizeBytes uint64, capacityFn CapacityFunc) *Table {
	t := &Table{
		max:             maxRegions,
		regionSizeBytes: regionSizeBytes,
		capacityFn:      capacityFn,
	}
	t.MakeAllRegionsUnavailable()
	return t
}

func (t *Table) checkTracked(p ID) {
	if p != Mutator && p != Collector {
		panic(fmt.Sprintf("partition: %v is not a tracked partition", p))
	}
}

func (t *Table) checkIndex(idx int) {
	if idx < 0 || idx >= t.max {
		panic(fmt.Sprintf("partition: region index %d out of range [0,%d)", idx, t.max))
	}
}

// Max returns the number of region indices this table tracks.
func (t *Table) Max() int { return t.max }

// RegionSizeBytes returns the fixed region size this table was constructed with.
func (t *Table) RegionSizeBytes() uint64 { return t.regionSizeBytes }

// MakeAllRegionsUnavailable zeroes both bitmaps and resets every bound and
// total to canonical empty.
func (t *Table) MakeAllRegionsUnavailable() {
	for _, p := range [...]ID{Mutator, Collector} {
		t.members[p] = bitmap.New(t.max)
		t.leftmost[p] = t.max
		t.rightmost[p] = -1
		t.leftmostEmpty[p] = t.max
		t.rightmostEmpty[p] = -1
		t.totals[p] = partitionTotals{}
	}
}

// Membership returns the partition idx currently belongs to, or NotFree.
func (t *Table) Membership(idx int) ID {
	t.checkIndex(idx)
	if t.members[Mutator].IsSet(idx) {
		return Mutator
	}
	if t.members[Collector].IsSet(idx) {
		return Collector
	}
	return NotFree
}

// InPartition reports whether idx is a member of partition p.
func (t *Table) InPartition(idx int, p ID) bool {
	t.checkTracked(p)
	t.checkIndex(idx)
	return t.members[p].IsSet(idx)
}

// Leftmost returns the least index believed to be in p, or Max() if p is
// empty.
func (t *Table) Leftmost(p ID) int {
	t.checkTracked(p)
	return t.leftmost[p]
}

// Rightmost returns the greatest index believed to be in p, or -1 if p is
// empty.
func (t *Table) Rightmost(p ID) int {
	t.checkTracked(p)
	return t.rightmost[p]
}

// IsEmpty reports whether partition p currently has no members.
func (t *Table) IsEmpty(p ID) bool {
	t.checkTracked(p)
	return t.totals[p].count == 0
}

// Count returns the number of regions currently in p.
func (t *Table) Count(p ID) int {
	t.checkTracked(p)
	return t.totals[p].count
}

// CapacityOf returns the total bytes of the regions currently in p:
// Count(p) times the region size. Retiring or moving a region out of p
// removes its capacity.
func (t *Table) CapacityOf(p ID) uint64 {
	t.checkTracked(p)
	return t.totals[p].capacity
}

// UsedBy returns the total bytes allocated within partition p.
func (t *Table) UsedBy(p ID) uint64 {
	t.checkTracked(p)
	return t.totals[p].used
}

// Available returns CapacityOf(p) - UsedBy(p).
func (t *Table) Available(p ID) uint64 {
	t.checkTracked(p)
	return t.totals[p].capacity - t.totals[p].used
}

// IncreaseUsed adds bytes to used[p]. Called by the free set after an
// in-region allocation succeeds.
func (t *Table) IncreaseUsed(p ID, bytes uint64) {
	t.checkTracked(p)
	t.totals[p].used += bytes
	if t.totals[p].used > t.totals[p].capacity {
		panic(fmt.Sprintf("partition: %v used %d exceeds capacity %d after increase by %d", p, t.totals[p].used, t.totals[p].capacity, bytes))
	}
}

// RawSetMembership sets the bit for idx in partition p without touching
// intervals or totals. Used only by PrepareToRebuild before EstablishIntervals
// commits the accumulated totals; idx must currently be NotFree.
func (t *Table) RawSetMembership(idx int, p ID) {
	t.checkTracked(p)
	t.checkIndex(idx)
	if m := t.Membership(idx); m != NotFree {
		panic(fmt.Sprintf("partition: RawSetMembership(%d): already in %v", idx, m))
	}
	t.members[p].Set(idx)
}

// EstablishIntervals commits the Mutator totals accumulated during rebuild
// (via RawSetMembership) and resets Collector to canonical empty.
func (t *Table) EstablishIntervals(lo, hi, emptyLo, emptyHi, count int, used uint64) {
	t.leftmost[Mutator] = lo
	t.rightmost[Mutator] = hi
	t.leftmostEmpty[Mutator] = emptyLo
	t.rightmostEmpty[Mutator] = emptyHi
	t.totals[Mutator] = partitionTotals{
		capacity: uint64(count) * t.regionSizeBytes,
		used:     used,
		count:    count,
	}

	t.leftmost[Collector] = t.max
	t.rightmost[Collector] = -1
	t.leftmostEmpty[Collector] = t.max
	t.rightmostEmpty[Collector] = -1
	t.totals[Collector] = partitionTotals{}
}

func (t *Table) expandIntervalIfBoundaryModified(p ID, idx int, avail uint64) {
	if idx < t.leftmost[p] {
		t.leftmost[p] = idx
	}
	if idx > t.rightmost[p] {
		t.rightmost[p] = idx
	}
	if avail == t.regionSizeBytes {
		if idx < t.leftmostEmpty[p] {
			t.leftmostEmpty[p] = idx
		}
		if idx > t.rightmostEmpty[p] {
			t.rightmostEmpty[p] = idx
		}
	}
}

func (t *Table) shrinkIntervalIfBoundaryModified(p ID, idx int) {
	t.shrinkRangeIfBoundaryModified(p, idx, idx)
}

// shrinkRangeIfBoundaryModified re-derives leftmost/rightmost[p] from the
// bitmap when the range [lo, hi] just cleared overlapped a cached boundary,
// then clamps the empty bounds so they remain a subset of [leftmost,
// rightmost] (never tighter than truth, but allowed to be loose).
func (t *Table) shrinkRangeIfBoundaryModified(p ID, lo, hi int) {
	if t.totals[p].count == 0 {
		t.leftmost[p] = t.max
		t.rightmost[p] = -1
		t.leftmostEmpty[p] = t.max
		t.rightmostEmpty[p] = -1
		return
	}

	if t.leftmost[p] >= lo && t.leftmost[p] <= hi {
		t.leftmost[p] = t.members[p].FindNextSet(hi+1, t.max)
	}
	if t.rightmost[p] >= lo && t.rightmost[p] <= hi {
		t.rightmost[p] = t.members[p].FindPrevSet(lo-1, -1)
	}
	if t.leftmostEmpty[p] < t.leftmost[p] {
		t.leftmostEmpty[p] = t.leftmost[p]
	}
	if t.rightmostEmpty[p] > t.rightmost[p] {
		t.rightmostEmpty[p] = t.rightmost[p]
	}
}

// MakeFree places idx into partition p. idx must currently be NotFree.
// avail is the region's allocatable bytes at the moment it becomes free;
// region_size - avail is charged to used[p] immediately (e.g. a region that
// is only partially empty when it joins the partition).
func (t *Table) MakeFree(idx int, p ID, avail uint64) {
	t.checkTracked(p)
	t.checkIndex(idx)
	if m := t.Membership(idx); m != NotFree {
		panic(fmt.Sprintf("partition: MakeFree(%d): already in %v", idx, m))
	}

	t.members[p].Set(idx)
	t.totals[p].capacity += t.regionSizeBytes
	t.totals[p].used += t.regionSizeBytes - avail
	t.totals[p].count++
	t.expandIntervalIfBoundaryModified(p, idx, avail)
}

// RetireFromPartition removes idx from partition p. usedBytes is the
// region's current actual usage (region_size - alloc_capacity); it is
// removed from used[p] along with the region's capacity, so that both the
// capacity equation (capacity[p] == count[p] * region_size) and the used
// bound (used[p] <= capacity[p]) keep holding once the region is gone. A
// region's unused remainder leaves with it — it is never added to used[p],
// since that capacity no longer belongs to p at all.
func (t *Table) RetireFromPartition(idx int, p ID, usedBytes uint64) {
	t.checkTracked(p)
	t.checkIndex(idx)
	if !t.members[p].IsSet(idx) {
		panic(fmt.Sprintf("partition: RetireFromPartition(%d): not a member of %v", idx, p))
	}

	t.members[p].Clear(idx)
	t.totals[p].capacity -= t.regionSizeBytes
	t.totals[p].used -= usedBytes
	t.totals[p].count--
	t.shrinkIntervalIfBoundaryModified(p, idx)
}

// RetireRangeFromPartition removes the contiguous span [lo, hi] from
// partition p, for a humongous allocation that has just filled every
// region in the span to capacity. Both capacity[p] and used[p] drop by the
// full span size: capacity because the regions leave p, used because the
// caller is expected to have already charged the allocation to used[p]
// (via IncreaseUsed) before calling this, and that charge is now removed
// along with the regions it was charged against.
func (t *Table) RetireRangeFromPartition(p ID, lo, hi int) {
	t.checkTracked(p)
	t.checkIndex(lo)
	t.checkIndex(hi)
	if lo > hi {
		panic(fmt.Sprintf("partition: RetireRangeFromPartition: lo %d > hi %d", lo, hi))
	}
	for idx := lo; idx <= hi; idx++ {
		if !t.members[p].IsSet(idx) {
			panic(fmt.Sprintf("partition: RetireRangeFromPartition(%d): not a member of %v", idx, p))
		}
		t.members[p].Clear(idx)
	}
	regionsRemoved := hi - lo + 1
	span := uint64(regionsRemoved) * t.regionSizeBytes
	t.totals[p].capacity -= span
	t.totals[p].used -= span
	t.totals[p].count -= regionsRemoved
	t.shrinkRangeIfBoundaryModified(p, lo, hi)
}

// MoveFromPartitionToPartition migrates idx from from to to, transferring
// region_size capacity and region_size-avail used between their totals.
// idx must currently be a member of from.
func (t *Table) MoveFromPartitionToPartition(idx int, from, to ID, avail uint64) {
	t.checkTracked(from)
	t.checkTracked(to)
	t.checkIndex(idx)
	if from == to {
		panic("partition: MoveFromPartitionToPartition: from and to are the same partition")
	}
	if !t.members[from].IsSet(idx) {
		panic(fmt.Sprintf("partition: MoveFromPartitionToPartition(%d): not a member of %v", idx, from))
	}

	usedDelta := t.regionSizeBytes - avail

	t.members[from].Clear(idx)
	t.totals[from].capacity -= t.regionSizeBytes
	t.totals[from].used -= usedDelta
	t.totals[from].count--
	t.shrinkIntervalIfBoundaryModified(from, idx)

	t.members[to].Set(idx)
	t.totals[to].capacity += t.regionSizeBytes
	t.totals[to].used += usedDelta
	t.totals[to].count++
	t.expandIntervalIfBoundaryModified(to, idx, avail)
}

// LeftmostEmpty returns the least index in p that is both a member and
// fully empty (AllocCapacity == region size), or Max() if none exists. The
// search resumes from the cached hint and memoizes whatever it finds.
func (t *Table) LeftmostEmpty(p ID) int {
	t.checkTracked(p)
	if t.totals[p].count == 0 {
		return t.max
	}

	start := t.leftmostEmpty[p]
	if start < t.leftmost[p] {
		start = t.leftmost[p]
	}
	for idx := t.members[p].FindNextSet(start, t.max); idx <= t.rightmost[p]; idx = t.members[p].FindNextSet(idx+1, t.max) {
		if t.capacityFn(idx) == t.regionSizeBytes {
			t.leftmostEmpty[p] = idx
			return idx
		}
	}
	t.leftmostEmpty[p] = t.max
	t.rightmostEmpty[p] = -1
	return t.max
}

// RightmostEmpty is the mirror of LeftmostEmpty: the greatest index in p
// that is both a member and fully empty, or -1 if none exists.
func (t *Table) RightmostEmpty(p ID) int {
	t.checkTracked(p)
	if t.totals[p].count == 0 {
		return -1
	}

	end := t.rightmostEmpty[p]
	if end > t.rightmost[p] || end < 0 {
		end = t.rightmost[p]
	}
	for idx := t.members[p].FindPrevSet(end, t.leftmost[p]-1); idx >= t.leftmost[p]; idx = t.members[p].FindPrevSet(idx-1, t.leftmost[p]-1) {
		if t.capacityFn(idx) == t.regionSizeBytes {
			t.rightmostEmpty[p] = idx
			return idx
		}
	}
	t.leftmostEmpty[p] = t.max
	t.rightmostEmpty[p] = -1
	return -1
}

// Bitmap exposes the raw membership bitmap for p, for callers (the free
// set's single-region and humongous search) that need FindNextSet/
// FindPrevSet/FindNextRun/FindPrevRun directly.
func (t *Table) Bitmap(p ID) *bitmap.CompactBitmap {
	t.checkTracked(p)
	return t.members[p]
}

// AssertBounds re-derives leftmost/rightmost for every tracked partition
// directly from the bitmaps and panics on any mismatch, plus checks the
// disjointness, capacity-equation, and used-bound invariants. The
// leftmostEmpty/rightmostEmpty hints are not checked. Intended to run after every mutation when the caller's debug
// assertions are enabled; expensive (full bitmap scan), never called from
// the hot path unconditionally.
func (t *Table) AssertBounds() {
	for _, p := range [...]ID{Mutator, Collector} {
		count := t.totals[p].count
		if count == 0 {
			if t.leftmost[p] != t.max || t.rightmost[p] != -1 {
				panic(fmt.Sprintf("partition: %v empty but bounds are [%d,%d]", p, t.leftmost[p], t.rightmost[p]))
			}
			continue
		}

		trueLeft := t.members[p].FindNextSet(0, t.max)
		trueRight := t.members[p].FindPrevSet(t.max-1, -1)
		if trueLeft != t.leftmost[p] {
			panic(fmt.Sprintf("partition: %v leftmost cache %d != true %d", p, t.leftmost[p], trueLeft))
		}
		if trueRight != t.rightmost[p] {
			panic(fmt.Sprintf("partition: %v rightmost cache %d != true %d", p, t.rightmost[p], trueRight))
		}
		if !t.members[p].IsSet(t.leftmost[p]) || !t.members[p].IsSet(t.rightmost[p]) {
			panic(fmt.Sprintf("partition: %v leftmost/rightmost bit not set", p))
		}
		if t.totals[p].capacity != uint64(count)*t.regionSizeBytes {
			panic(fmt.Sprintf("partition: %v capacity %d != count*region_size %d", p, t.totals[p].capacity, uint64(count)*t.regionSizeBytes))
		}
		if t.totals[p].used > t.totals[p].capacity {
			panic(fmt.Sprintf("partition: %v used %d exceeds capacity %d", p, t.totals[p].used, t.totals[p].capacity))
		}
	}

	for idx := 0; idx < t.max; idx++ {
		if t.members[Mutator].IsSet(idx) && t.members[Collector].IsSet(idx) {
			panic(fmt.Sprintf("partition: region %d is in both Mutator and Collector", idx))
		}
	}
}
