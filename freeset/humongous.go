package freeset

import (
	"github.com/ANU-350/shenfreeset/partition"
	"github.com/ANU-350/shenfreeset/region"
)

// allocateContiguous services a humongous (multi-region) request. Search is
// biased to the low end of the Mutator empty interval so humongous regions
// congregate at low addresses, leaving the Collector reserve room to grow
// at the high end.
func (fs *FreeSet) allocateContiguous(req *region.AllocRequest) (region.Address, bool) {
	regionSizeWords := fs.host.RegionSizeWords()
	numRegions := ceilDivWords(req.SizeWords, regionSizeWords)

	if fs.table.Count(partition.Mutator) < numRegions {
		return 0, false
	}

	startRange := fs.table.LeftmostEmpty(partition.Mutator)
	endRange := fs.table.RightmostEmpty(partition.Mutator) + 1
	if endRange <= startRange {
		return 0, false
	}

	bm := fs.table.Bitmap(partition.Mutator)
	beg := startRange
	for {
		beg = bm.FindNextRun(numRegions, beg, endRange)
		if beg == endRange {
			return 0, false
		}

		failIdx := -1
		for i := beg; i < beg+numRegions; i++ {
			if !(fs.host.IsEmpty(i) || fs.host.IsTrash(i)) {
				failIdx = i
				break
			}
		}
		if failIdx < 0 {
			break
		}
		beg = failIdx + 1
	}

	last := beg + numRegions - 1
	for i := beg; i <= last; i++ {
		if fs.host.IsTrash(i) {
			fs.host.Recycle(i)
		}
	}

	fs.host.MakeHumongousStart(beg)
	for i := beg + 1; i <= last; i++ {
		fs.host.MakeHumongousCont(i)
	}

	remainderWords := req.SizeWords - uint64(numRegions-1)*regionSizeWords
	fs.host.SetTop(last, remainderWords)

	// Charge the allocation to used[Mutator] before the span is retired:
	// RetireRangeFromPartition removes an equal amount along with the
	// capacity, so the net effect is that these regions' capacity leaves
	// Mutator's accounting while leaving every other region's used/
	// capacity untouched.
	fs.table.IncreaseUsed(partition.Mutator, uint64(numRegions)*fs.host.RegionSizeBytes())
	fs.table.RetireRangeFromPartition(partition.Mutator, beg, last)

	req.ActualSizeWords = req.SizeWords
	req.InNewRegion = true

	addr := region.Address(uint64(beg) * regionSizeWords)
	return addr, true
}

func ceilDivWords(sizeWords, regionSizeWords uint64) int {
	return int((sizeWords + regionSizeWords - 1) / regionSizeWords)
}
