package freeset

import (
	"sync"

	"github.com/ANU-350/shenfreeset/partition"
	"github.com/ANU-350/shenfreeset/region"
)

// FreeSet is the allocation policy engine described in the package doc.
// Construct with New; all fields are unexported, mutated only through the
// methods below.
type FreeSet struct {
	host   region.Host
	table  *partition.Table
	lock   sync.Locker
	config Config

	// biasRemaining counts down on every Mutator-origin single-region
	// allocation; biasRightToLeft is re-evaluated when it crosses zero.
	biasRemaining   int
	biasRightToLeft bool

	// weakRootsInProgress gates whether try_allocate_in may recycle a
	// trash region inline or must skip it; set by SetWeakRootsInProgress.
	weakRootsInProgress bool
}

// New builds a FreeSet over host, using lock to serialize the two
// operations that manage locking internally (RecycleTrash,
// MoveRegionsFromCollectorToMutator). lock must be the same lock the caller
// holds across every other FreeSet method.
func New(host region.Host, lock sync.Locker, config Config) *FreeSet {
	table := partition.NewTable(host.NumRegions(), host.RegionSizeBytes(), host.AllocCapacity)
	return &FreeSet{
		host:          host,
		table:         table,
		lock:          lock,
		config:        config,
		biasRemaining: config.BiasBudget,
	}
}

// Table exposes the underlying partition table, for callers that want to
// inspect totals or bounds directly (e.g. report.go, or a caller's own
// metrics).
func (fs *FreeSet) Table() *partition.Table { return fs.table }

// SetWeakRootsInProgress toggles whether try_allocate_in may recycle a
// trash region inline. While concurrent weak-root processing is underway,
// trash regions are skipped rather than recycled, since recycling races
// with the scan.
func (fs *FreeSet) SetWeakRootsInProgress(inProgress bool) {
	fs.weakRootsInProgress = inProgress
}

func (fs *FreeSet) wordSizeBytes() uint64 {
	return fs.host.RegionSizeBytes() / fs.host.RegionSizeWords()
}

// maybeAssertBounds runs Table.AssertBounds when Config.DebugAssertions is
// set, the analogue of hotspot's NOT_DEBUG_RETURN-gated assert_bounds
// calls. Every method that mutates the table calls this once, after the
// mutation, rather than leaving the check to the caller.
func (fs *FreeSet) maybeAssertBounds() {
	if fs.config.DebugAssertions {
		fs.table.AssertBounds()
	}
}

// Allocate services req, dispatching to the contiguous (humongous) or
// single-region path by size. Returns the base address and whether the
// allocation succeeded; a false result is an ordinary allocation failure,
// never a panic.
func (fs *FreeSet) Allocate(req *region.AllocRequest) (region.Address, bool) {
	defer fs.maybeAssertBounds()
	if req.IsHumongous(fs.host.HumongousThresholdWords()) {
		if req.Kind.IsLAB() {
			panic("freeset: humongous request for LAB kind")
		}
		return fs.allocateContiguous(req)
	}
	return fs.allocateSingle(req)
}
