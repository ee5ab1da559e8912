package freeset

// Config tunes the policy knobs layered over the mechanical partition and
// bitmap primitives: how much of the heap the collector reserves ahead of
// an evacuation cycle, when a nearly-full region is retired, and whether
// to pay for the extra bookkeeping that AssertBounds performs.
type Config struct {
	// EvacReservePercent is the percentage of MaxCapacity the collector
	// tries to reserve for evacuation when FinishRebuild runs.
	EvacReservePercent float64
	// EvacWasteFactor sets the retirement threshold after a failed
	// in-region allocation: a region whose remaining bytes fall below
	// region_size * (1 - 1/EvacWasteFactor) is retired.
	EvacWasteFactor float64
	// EvacReserveOverflow allows a collector allocation that finds no room
	// in the Collector partition to move a fully-empty Mutator region into
	// Collector and allocate there.
	EvacReserveOverflow bool

	// PLABMinSizeWords is the minimum-useful region remainder: a region
	// left with fewer bytes than this after a successful allocation is
	// retired, and PrepareToRebuild admits only regions with more. The
	// shrink floor of a LAB request is the request's own MinSizeWords.
	PLABMinSizeWords uint64

	// BiasBudget is the number of consecutive allocations placed before
	// the alternating-bias heuristic re-evaluates scan direction.
	BiasBudget int

	// DebugAssertions enables the O(regions) Table.AssertBounds check
	// after every mutating FreeSet method. Intended for tests and
	// development builds, not production hot paths.
	DebugAssertions bool
}

// Predefined configurations, mirroring the region package's fixed Kind set:
// one tuned for throughput-sensitive workloads (few, large evacuation
// reserves) and one tuned for latency-sensitive workloads (frequent, modest
// reserves with overflow allowed).

// ConfigThroughput favors larger evacuation reserves and a wider bias
// budget, trading memory headroom for fewer direction flips.
var ConfigThroughput = Config{
	EvacReservePercent:  5.0,
	EvacWasteFactor:     1.2,
	EvacReserveOverflow: false,
	PLABMinSizeWords:    256,
	BiasBudget:          64,
}

// ConfigLatency favors a smaller, overflow-capable evacuation reserve and a
// tighter bias budget, re-evaluating scan direction more often to keep
// allocation paths short.
var ConfigLatency = Config{
	EvacReservePercent:  2.0,
	EvacWasteFactor:     1.2,
	EvacReserveOverflow: true,
	PLABMinSizeWords:    128,
	BiasBudget:          8,
}

// DefaultConfig is used when the caller does not supply one.
var DefaultConfig = ConfigLatency
