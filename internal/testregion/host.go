// Package testregion is an in-memory region.Host test double used to drive
// partition and freeset tests without a real heap behind it. It is not a
// mocking-library fixture: each field is a plain slice/map mutated directly
// by the methods below, the same hand-rolled-fixture style the teacher
// package uses for its own test helpers.
package testregion

import "github.com/ANU-350/shenfreeset/region"

// Region is one fake heap region's mutable state.
type Region struct {
	Top              uint64 // allocation pointer, in words from base
	Trash            bool
	AllocAllowed     bool
	HumongousStart   bool
	HumongousCont    bool
	UpdateWatermark  region.Address
	FailedEvacuation bool
}

// Host is a fixed-size, fixed-region-size region.Host backed by plain Go
// state. Tests construct one with NewHost and mutate Regions directly to
// set up scenarios (e.g. pre-filling a region to simulate a partially used
// region rejoining a partition).
type Host struct {
	Regions             []Region
	regionSizeWords     uint64
	humongousThreshold  uint64
	minObjectAlignWords uint64
}

// NewHost builds a Host with numRegions regions, each regionSizeWords words
// wide, all initially empty and alloc-allowed.
func NewHost(numRegions int, regionSizeWords, humongousThreshold, minObjectAlignWords uint64) *Host {
	h := &Host{
		Regions:             make([]Region, numRegions),
		regionSizeWords:     regionSizeWords,
		humongousThreshold:  humongousThreshold,
		minObjectAlignWords: minObjectAlignWords,
	}
	for i := range h.Regions {
		h.Regions[i].AllocAllowed = true
	}
	return h
}

func (h *Host) AllocCapacity(idx int) uint64 {
	r := &h.Regions[idx]
	if r.Trash {
		return h.RegionSizeBytes()
	}
	return (h.regionSizeWords - r.Top) * 8
}

func (h *Host) IsEmpty(idx int) bool {
	r := &h.Regions[idx]
	return !r.Trash && r.Top == 0
}

func (h *Host) IsTrash(idx int) bool { return h.Regions[idx].Trash }

func (h *Host) IsAllocAllowed(idx int) bool { return h.Regions[idx].AllocAllowed }

func (h *Host) AllocateInRegion(idx int, words uint64, kind region.Kind) (region.Address, bool) {
	r := &h.Regions[idx]
	if r.Trash || !r.AllocAllowed {
		return 0, false
	}
	remaining := h.regionSizeWords - r.Top
	if remaining < words {
		return 0, false
	}
	addr := region.Address(uint64(idx)*h.regionSizeWords + r.Top)
	r.Top += words
	return addr, true
}

func (h *Host) Recycle(idx int) {
	r := &h.Regions[idx]
	r.Trash = false
	r.Top = 0
	r.HumongousStart = false
	r.HumongousCont = false
	r.FailedEvacuation = false
}

func (h *Host) MakeHumongousStart(idx int) {
	r := &h.Regions[idx]
	r.HumongousStart = true
	r.Top = h.regionSizeWords
}

func (h *Host) MakeHumongousCont(idx int) {
	r := &h.Regions[idx]
	r.HumongousCont = true
	r.Top = h.regionSizeWords
}

func (h *Host) SetTop(idx int, words uint64) { h.Regions[idx].Top = words }

func (h *Host) SetUpdateWatermark(idx int, addr region.Address) {
	h.Regions[idx].UpdateWatermark = addr
}

func (h *Host) HasFailedEvacuation(idx int) bool { return h.Regions[idx].FailedEvacuation }

func (h *Host) IsHumongous(idx int) bool {
	r := &h.Regions[idx]
	return r.HumongousStart || r.HumongousCont
}

func (h *Host) RegionSizeBytes() uint64 { return h.regionSizeWords * 8 }

func (h *Host) RegionSizeWords() uint64 { return h.regionSizeWords }

func (h *Host) HumongousThresholdWords() uint64 { return h.humongousThreshold }

func (h *Host) MinObjectAlignmentWords() uint64 { return h.minObjectAlignWords }

func (h *Host) NumRegions() int { return len(h.Regions) }

func (h *Host) MaxCapacity() uint64 { return uint64(len(h.Regions)) * h.RegionSizeBytes() }

// MarkTrash retires region idx to trash, as the collector would after
// evacuation leaves it entirely garbage.
func (h *Host) MarkTrash(idx int) {
	h.Regions[idx].Trash = true
}

var _ region.Host = (*Host)(nil)
