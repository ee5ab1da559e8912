package region

// Address is the result of a successful in-region allocation: a word
// offset into the host's address space. The zero value is also a valid
// address (the base of region 0), so callers must consult the bool result
// alongside it.
type Address uint64

// Kind distinguishes the four shapes of allocation request the free set
// services.
type Kind uint8

const (
	// TLAB is a thread-local allocation buffer requested by a mutator
	// thread; it may shrink to fit the region's remaining space.
	TLAB Kind = iota
	// SharedMutator is a single mutator-origin object allocated directly
	// (not through a TLAB), exact-size only.
	SharedMutator
	// GCLab is a collector-side evacuation buffer (PLAB); it may shrink
	// to fit like a TLAB.
	GCLab
	// SharedGC is a single collector-origin object, exact-size only.
	SharedGC
)

// IsLAB reports whether k is a size-shrinking buffer request (TLAB or
// GCLab) as opposed to an exact-size single allocation.
func (k Kind) IsLAB() bool {
	return k == TLAB || k == GCLab
}

// IsGC reports whether k originates from the collector rather than a
// mutator thread.
func (k Kind) IsGC() bool {
	return k == GCLab || k == SharedGC
}

func (k Kind) String() string {
	switch k {
	case TLAB:
		return "TLAB"
	case SharedMutator:
		return "SharedMutator"
	case GCLab:
		return "GCLab"
	case SharedGC:
		return "SharedGC"
	default:
		return "Unknown"
	}
}

// Host is the set of per-region queries and mutations the free set needs
// from the surrounding heap. Region objects themselves, and the flags that
// drive IsEmpty/IsTrash/IsAllocAllowed, are owned and defined entirely by
// the host; the free set only observes them through this interface.
//
// Every method is called with the caller's heap lock held, except
// HasFailedEvacuation, which the host is expected to back with an atomic
// read (it is consulted outside the lock by collector-side policy that sits
// above this package).
type Host interface {
	// AllocCapacity returns the remaining allocatable bytes in region idx.
	// A trash region reports RegionSizeBytes(), since trash is recyclable
	// before allocation.
	AllocCapacity(idx int) uint64
	IsEmpty(idx int) bool
	IsTrash(idx int) bool
	IsAllocAllowed(idx int) bool

	// AllocateInRegion bumps region idx's internal allocation pointer by
	// words words for the given kind, returning the base address of the
	// new allocation. ok is false if the region lacks sufficient capacity.
	AllocateInRegion(idx int, words uint64, kind Kind) (addr Address, ok bool)

	// Recycle resets a trash region to empty.
	Recycle(idx int)
	// MakeHumongousStart marks region idx as the first region of a
	// humongous span.
	MakeHumongousStart(idx int)
	// MakeHumongousCont marks region idx as a continuation of a
	// humongous span.
	MakeHumongousCont(idx int)
	// IsHumongous reports whether idx is any part (start or continuation)
	// of a humongous span. Consulted only by status reporting.
	IsHumongous(idx int) bool
	// SetTop sets region idx's allocation-top pointer, in words from the
	// region's base.
	SetTop(idx int, words uint64)
	// SetUpdateWatermark records the address up to which this region's
	// contents are exempt from reference updates in the current cycle.
	SetUpdateWatermark(idx int, addr Address)

	// HasFailedEvacuation reports whether region idx held an object whose
	// evacuation failed during the current cycle. Read without the heap
	// lock; the host is expected to back it with atomic state.
	HasFailedEvacuation(idx int) bool

	RegionSizeBytes() uint64
	RegionSizeWords() uint64
	HumongousThresholdWords() uint64
	MinObjectAlignmentWords() uint64
	NumRegions() int
	MaxCapacity() uint64
}
