package freeset

import "github.com/ANU-350/shenfreeset/partition"

// PrepareToRebuild clears both partitions and repopulates Mutator from
// every region the host currently reports as allocatable and above the
// PLAB minimum threshold. Returns the number of trash regions observed,
// for the caller to fold into its own cycle accounting.
func (fs *FreeSet) PrepareToRebuild() (csetRegions int) {
	defer fs.maybeAssertBounds()
	fs.table.MakeAllRegionsUnavailable()

	numRegions := fs.host.NumRegions()
	regionSize := fs.host.RegionSizeBytes()
	minThreshold := fs.config.PLABMinSizeWords * fs.wordSizeBytes()

	lo, hi := numRegions, -1
	emptyLo, emptyHi := numRegions, -1
	var count int
	var used uint64

	for idx := 0; idx < numRegions; idx++ {
		if fs.host.IsTrash(idx) {
			csetRegions++
		}
		if !fs.host.IsAllocAllowed(idx) {
			continue
		}
		avail := fs.host.AllocCapacity(idx)
		if avail <= minThreshold {
			continue
		}

		fs.table.RawSetMembership(idx, partition.Mutator)
		if idx < lo {
			lo = idx
		}
		if idx > hi {
			hi = idx
		}
		if avail == regionSize {
			if idx < emptyLo {
				emptyLo = idx
			}
			if idx > emptyHi {
				emptyHi = idx
			}
		}
		count++
		used += regionSize - avail
	}

	fs.table.EstablishIntervals(lo, hi, emptyLo, emptyHi, count, used)
	return csetRegions
}

// FinishRebuild computes the evacuation reserve target from MaxCapacity and
// Config.EvacReservePercent, then migrates that many bytes of high-address
// Mutator regions into Collector.
func (fs *FreeSet) FinishRebuild(csetRegions int) {
	defer fs.maybeAssertBounds()
	target := uint64(float64(fs.host.MaxCapacity()) * fs.config.EvacReservePercent / 100)
	fs.reserveRegions(target)
	log.Info("rebuild finished",
		"csetRegions", csetRegions,
		"mutatorCount", fs.table.Count(partition.Mutator),
		"collectorCount", fs.table.Count(partition.Collector),
		"collectorCapacity", fs.table.CapacityOf(partition.Collector))
}

// reserveRegions walks Mutator from high index to low, migrating regions
// into Collector until its available bytes meet target or Mutator runs
// out. Non-empty regions may be migrated, not just empty ones, so
// survivor-like objects stay contiguous at the high end.
func (fs *FreeSet) reserveRegions(target uint64) {
	for fs.table.Available(partition.Collector) < target && !fs.table.IsEmpty(partition.Mutator) {
		idx := fs.table.Rightmost(partition.Mutator)
		avail := fs.host.AllocCapacity(idx)
		fs.table.MoveFromPartitionToPartition(idx, partition.Mutator, partition.Collector, avail)
	}
}

// MoveRegionsFromCollectorToMutator releases unused evacuation reserve back
// to the Mutator partition, migrating fully-empty Collector regions first
// and then non-empty ones, up to maxXfer regions total. Unlike every other
// FreeSet method, this one acquires the heap lock itself.
func (fs *FreeSet) MoveRegionsFromCollectorToMutator(maxXfer int) int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	defer fs.maybeAssertBounds()

	transferred := 0
	for transferred < maxXfer {
		idx := fs.table.LeftmostEmpty(partition.Collector)
		if idx >= fs.table.Max() {
			break
		}
		avail := fs.host.AllocCapacity(idx)
		fs.table.MoveFromPartitionToPartition(idx, partition.Collector, partition.Mutator, avail)
		transferred++
	}

	for transferred < maxXfer && !fs.table.IsEmpty(partition.Collector) {
		idx := fs.table.Leftmost(partition.Collector)
		avail := fs.host.AllocCapacity(idx)
		fs.table.MoveFromPartitionToPartition(idx, partition.Collector, partition.Mutator, avail)
		transferred++
	}
	return transferred
}

// RecycleTrash recycles every trash region back to empty. It releases the
// heap lock between regions so mutator allocators can make progress,
// reacquiring it for each individual region.
func (fs *FreeSet) RecycleTrash() {
	for idx := 0; idx < fs.host.NumRegions(); idx++ {
		fs.lock.Lock()
		if fs.host.IsTrash(idx) {
			fs.host.Recycle(idx)
		}
		fs.lock.Unlock()
	}
}
