package freeset

import (
	"strings"

	"github.com/ANU-350/shenfreeset/partition"
)

// InternalFragmentation returns 1 - (Σused_i²)/(region_size·Σused_i) over
// Mutator regions, 0 if the denominator is zero. It measures how unevenly
// bytes are used within partially-full regions: two regions each 50% used
// score 0.5, while one region at 100% and one at 0% score 0.
func (fs *FreeSet) InternalFragmentation() float64 {
	regionSize := fs.host.RegionSizeBytes()
	bm := fs.table.Bitmap(partition.Mutator)

	var sumUsed, sumUsedSq uint64
	for idx := bm.FindNextSet(0, fs.table.Max()); idx < fs.table.Max(); idx = bm.FindNextSet(idx+1, fs.table.Max()) {
		used := regionSize - fs.host.AllocCapacity(idx)
		sumUsed += used
		sumUsedSq += used * used
	}
	if sumUsed == 0 {
		return 0
	}
	return 1 - float64(sumUsedSq)/(float64(regionSize)*float64(sumUsed))
}

// ExternalFragmentation returns 1 - (max_contiguous_empty_regions·region_size)
// / total_free_bytes over the Mutator partition, 0 if there is no free
// space. It measures how scattered the fully-empty regions are: a free set
// whose free bytes all lie in one run of empties scores 0, one with the same total free
// bytes spread across isolated singletons scores close to 1.
func (fs *FreeSet) ExternalFragmentation() float64 {
	totalFree := fs.table.Available(partition.Mutator)
	if totalFree == 0 {
		return 0
	}

	regionSize := fs.host.RegionSizeBytes()
	maxRun, run := 0, 0
	for idx := 0; idx < fs.table.Max(); idx++ {
		if fs.table.InPartition(idx, partition.Mutator) && fs.host.AllocCapacity(idx) == regionSize {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 0
		}
	}
	return 1 - float64(uint64(maxRun)*regionSize)/float64(totalFree)
}

// LogStatus emits a per-partition ASCII map (one character per region: M/m
// empty/partial Mutator, C/c empty/partial Collector, h humongous, _
// retired/other) plus per-partition totals, at Info level.
func (fs *FreeSet) LogStatus() {
	regionSize := fs.host.RegionSizeBytes()
	var sb strings.Builder
	for idx := 0; idx < fs.table.Max(); idx++ {
		switch {
		case fs.host.IsHumongous(idx):
			sb.WriteByte('h')
		case fs.table.InPartition(idx, partition.Mutator):
			if fs.host.AllocCapacity(idx) == regionSize {
				sb.WriteByte('M')
			} else {
				sb.WriteByte('m')
			}
		case fs.table.InPartition(idx, partition.Collector):
			if fs.host.AllocCapacity(idx) == regionSize {
				sb.WriteByte('C')
			} else {
				sb.WriteByte('c')
			}
		default:
			sb.WriteByte('_')
		}
	}

	log.Info("free set map",
		"map", sb.String(),
		"mutatorCount", fs.table.Count(partition.Mutator),
		"mutatorCapacity", fs.table.CapacityOf(partition.Mutator),
		"mutatorUsed", fs.table.UsedBy(partition.Mutator),
		"collectorCount", fs.table.Count(partition.Collector),
		"collectorCapacity", fs.table.CapacityOf(partition.Collector),
		"collectorUsed", fs.table.UsedBy(partition.Collector),
		"internalFragmentation", fs.InternalFragmentation(),
		"externalFragmentation", fs.ExternalFragmentation(),
	)
}
