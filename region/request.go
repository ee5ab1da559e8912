package region

// AllocRequest describes a single allocation request to the free set and
// carries back the outcome.
type AllocRequest struct {
	// Kind selects the placement policy and whether the request may
	// shrink to fit.
	Kind Kind
	// SizeWords is the requested allocation size.
	SizeWords uint64
	// MinSizeWords is the smallest acceptable size for a LAB request
	// (TLAB or GCLab); ignored for exact-size kinds.
	MinSizeWords uint64

	// ActualSizeWords is set by the free set on success: the size
	// actually allocated, which may be less than SizeWords for a LAB
	// request that shrank to fit.
	ActualSizeWords uint64
	// InNewRegion is set by the free set when the allocation started a
	// previously empty region.
	InNewRegion bool
}

// IsHumongous reports whether req's size exceeds the given threshold.
func (req *AllocRequest) IsHumongous(humongousThresholdWords uint64) bool {
	return req.SizeWords > humongousThresholdWords
}
