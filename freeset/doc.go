// Package freeset implements the allocation policy engine over a
// partition.Table: placement strategy by request kind, the alternating-bias
// heuristic for single-region scans, the humongous contiguous-run search,
// and the rebuild/reserve lifecycle that moves regions between the Mutator
// and Collector partitions.
//
// A FreeSet owns no region state itself; every mutation to a region's
// contents goes through the region.Host it was constructed with. It is not
// safe for concurrent use: callers serialize access with the sync.Locker
// passed to New, held across every FreeSet method except RecycleTrash and
// MoveRegionsFromCollectorToMutator, which acquire and release it
// internally.
package freeset
