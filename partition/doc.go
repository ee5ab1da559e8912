// Package partition tracks which heap regions belong to the Mutator free
// set, the Collector free set, or neither (NotFree), and maintains cached
// interval bounds over each partition so free-space search does not have to
// scan the whole region range on every allocation.
//
// # Bitmap is truth, intervals are hints
//
// Table keeps one bitmap.CompactBitmap per partition plus four cached
// bounds (leftmost, rightmost, leftmostEmpty, rightmostEmpty). The bounds
// may be looser than reality but are never tighter: every membership
// mutation routes through a handful of primitives (MakeFree,
// RetireFromPartition, RetireRangeFromPartition,
// MoveFromPartitionToPartition) that update the bit and the totals and the
// bounds together. The exceptions are RawSetMembership, which sets only the
// bit during a rebuild whose totals and bounds EstablishIntervals then
// commits, and IncreaseUsed, which charges an in-region allocation to
// used[p] without changing membership.
//
// # No back-reference
//
// Table needs each region's current allocation capacity to decide whether a
// region qualifies as "fully empty" for the empty-interval bounds. Rather
// than holding a pointer back to the free set, it is constructed with a
// plain capacity function, avoiding a cyclic object graph.
package partition
