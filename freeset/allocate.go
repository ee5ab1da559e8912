package freeset

import (
	"github.com/ANU-350/shenfreeset/partition"
	"github.com/ANU-350/shenfreeset/region"
)

func (fs *FreeSet) allocateSingle(req *region.AllocRequest) (region.Address, bool) {
	if req.Kind.IsGC() {
		return fs.allocateSingleCollector(req)
	}
	return fs.allocateSingleMutator(req)
}

// requiredMinBytes is the smallest capacity a candidate region must offer
// before try_allocate_in is worth attempting: the full size for exact-size
// kinds, the minimum shrink size for LAB kinds.
func (fs *FreeSet) requiredMinBytes(req *region.AllocRequest) uint64 {
	wordSize := fs.wordSizeBytes()
	if req.Kind.IsLAB() {
		return req.MinSizeWords * wordSize
	}
	return req.SizeWords * wordSize
}

// maybeFlipBias decrements the bias counter and, once it crosses zero,
// re-evaluates scan direction by comparing how fragmented (non-empty) the
// Mutator range is on each side of its empty interval. The side with more
// fragmentation is scanned first, so partially-used regions are consumed
// before fully-empty ones, preserving empties for future humongous needs.
func (fs *FreeSet) maybeFlipBias() {
	fs.biasRemaining--
	if fs.biasRemaining > 0 {
		return
	}
	fs.biasRemaining = fs.config.BiasBudget

	leftmost := fs.table.Leftmost(partition.Mutator)
	rightmost := fs.table.Rightmost(partition.Mutator)
	leftmostEmpty := fs.table.LeftmostEmpty(partition.Mutator)
	rightmostEmpty := fs.table.RightmostEmpty(partition.Mutator)

	leftFragmented := leftmostEmpty - leftmost
	rightFragmented := rightmost - rightmostEmpty
	fs.biasRightToLeft = rightFragmented > leftFragmented
}

func (fs *FreeSet) allocateSingleMutator(req *region.AllocRequest) (region.Address, bool) {
	fs.maybeFlipBias()

	bm := fs.table.Bitmap(partition.Mutator)
	minBytes := fs.requiredMinBytes(req)
	leftmost := fs.table.Leftmost(partition.Mutator)
	rightmost := fs.table.Rightmost(partition.Mutator)

	if fs.biasRightToLeft {
		for idx := bm.FindPrevSet(rightmost, leftmost-1); idx >= leftmost; idx = bm.FindPrevSet(idx-1, leftmost-1) {
			if fs.host.AllocCapacity(idx) < minBytes {
				continue
			}
			if addr, ok := fs.tryAllocateIn(idx, partition.Mutator, req); ok {
				return addr, true
			}
		}
		return 0, false
	}

	for idx := bm.FindNextSet(leftmost, rightmost+1); idx <= rightmost; idx = bm.FindNextSet(idx+1, rightmost+1) {
		if fs.host.AllocCapacity(idx) < minBytes {
			continue
		}
		if addr, ok := fs.tryAllocateIn(idx, partition.Mutator, req); ok {
			return addr, true
		}
	}
	return 0, false
}

func (fs *FreeSet) allocateSingleCollector(req *region.AllocRequest) (region.Address, bool) {
	bm := fs.table.Bitmap(partition.Collector)
	minBytes := fs.requiredMinBytes(req)
	leftmost := fs.table.Leftmost(partition.Collector)
	rightmost := fs.table.Rightmost(partition.Collector)

	for idx := bm.FindPrevSet(rightmost, leftmost-1); idx >= leftmost; idx = bm.FindPrevSet(idx-1, leftmost-1) {
		if fs.host.AllocCapacity(idx) < minBytes {
			continue
		}
		if addr, ok := fs.tryAllocateIn(idx, partition.Collector, req); ok {
			return addr, true
		}
	}

	if !fs.config.EvacReserveOverflow {
		return 0, false
	}

	mutatorBM := fs.table.Bitmap(partition.Mutator)
	mutatorLeftEmpty := fs.table.LeftmostEmpty(partition.Mutator)
	mutatorRightEmpty := fs.table.RightmostEmpty(partition.Mutator)
	regionSize := fs.host.RegionSizeBytes()

	for idx := mutatorBM.FindPrevSet(mutatorRightEmpty, mutatorLeftEmpty-1); idx >= mutatorLeftEmpty; idx = mutatorBM.FindPrevSet(idx-1, mutatorLeftEmpty-1) {
		if fs.host.AllocCapacity(idx) != regionSize {
			continue
		}
		fs.table.MoveFromPartitionToPartition(idx, partition.Mutator, partition.Collector, regionSize)
		if addr, ok := fs.tryAllocateIn(idx, partition.Collector, req); ok {
			return addr, true
		}
		return 0, false
	}
	return 0, false
}

// tryAllocateIn attempts to place req in region idx, which the caller has
// already confirmed is a member of p with enough capacity to be worth
// trying. It handles trash recycling, LAB shrink-to-fit, accounting, and
// the post-attempt retirement check.
func (fs *FreeSet) tryAllocateIn(idx int, p partition.ID, req *region.AllocRequest) (region.Address, bool) {
	if fs.host.IsTrash(idx) {
		if fs.weakRootsInProgress {
			return 0, false
		}
		fs.host.Recycle(idx)
	}
	if !fs.host.IsAllocAllowed(idx) {
		return 0, false
	}

	wasEmpty := fs.host.IsEmpty(idx)
	wordSize := fs.wordSizeBytes()

	var actualWords uint64
	if req.Kind.IsLAB() {
		availWords := fs.host.AllocCapacity(idx) / wordSize
		align := fs.host.MinObjectAlignmentWords()
		actualWords = req.SizeWords
		if actualWords > availWords {
			actualWords = availWords
		}
		if align > 0 {
			actualWords -= actualWords % align
		}
		if actualWords < req.MinSizeWords {
			fs.maybeRetire(idx, p, false)
			return 0, false
		}
	} else {
		actualWords = req.SizeWords
	}

	addr, ok := fs.host.AllocateInRegion(idx, actualWords, req.Kind)
	if !ok {
		fs.maybeRetire(idx, p, false)
		return 0, false
	}

	req.ActualSizeWords = actualWords
	req.InNewRegion = wasEmpty

	if req.Kind.IsGC() {
		// Advance the watermark past the objects just relocated here, so
		// they are exempt from reference updates in this cycle (see
		// region.Host.SetUpdateWatermark).
		fs.host.SetUpdateWatermark(idx, addr+region.Address(actualWords))
	}
	fs.table.IncreaseUsed(p, actualWords*wordSize)

	fs.maybeRetire(idx, p, true)
	return addr, true
}

// maybeRetire checks region idx's remaining capacity after an allocation
// attempt and retires it from p if that remainder falls below a
// minimum-useful threshold: the EvacWasteFactor-scaled threshold after a
// failed attempt, the PLAB minimum threshold unconditionally otherwise.
func (fs *FreeSet) maybeRetire(idx int, p partition.ID, succeeded bool) {
	remaining := fs.host.AllocCapacity(idx)

	var threshold uint64
	if !succeeded {
		regionSize := fs.host.RegionSizeBytes()
		threshold = uint64(float64(regionSize) * (1 - 1/fs.config.EvacWasteFactor))
	} else {
		threshold = fs.config.PLABMinSizeWords * fs.wordSizeBytes()
	}

	if remaining < threshold {
		fs.table.RetireFromPartition(idx, p, fs.host.RegionSizeBytes()-remaining)
	}
}
