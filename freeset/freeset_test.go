package freeset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANU-350/shenfreeset/internal/testregion"
	"github.com/ANU-350/shenfreeset/partition"
	"github.com/ANU-350/shenfreeset/region"
)

// Scenario constants mirror a 1 MiB region, 512 KiB humongous threshold,
// 20% evacuation reserve, 8-byte words.
const (
	scenarioRegionSizeWords        = 131072
	scenarioHumongousThresholdWords = 65536
	scenarioNumRegions             = 16
)

func scenarioConfig() Config {
	return Config{
		EvacReservePercent: 20,
		EvacWasteFactor:    1.2,
		PLABMinSizeWords:   512, // 4 KiB
	}
}

func newScenarioFreeSet(t *testing.T, numRegions int) (*testregion.Host, *FreeSet) {
	t.Helper()
	host := testregion.NewHost(numRegions, scenarioRegionSizeWords, scenarioHumongousThresholdWords, 1)
	fs := New(host, &sync.Mutex{}, scenarioConfig())
	return host, fs
}

func TestScenario1_EmptyRebuild(t *testing.T) {
	_, fs := newScenarioFreeSet(t, scenarioNumRegions)

	cset := fs.PrepareToRebuild()
	assert.Equal(t, 0, cset)
	fs.FinishRebuild(cset)

	tbl := fs.Table()
	total := tbl.Count(partition.Mutator) + tbl.Count(partition.Collector)
	assert.Equal(t, scenarioNumRegions, total)
	assert.Equal(t, 0, tbl.Leftmost(partition.Mutator))
	assert.Equal(t, tbl.Rightmost(partition.Mutator)+1, tbl.Leftmost(partition.Collector))
	assert.Equal(t, scenarioNumRegions-1, tbl.Rightmost(partition.Collector))
	target := uint64(float64(tbl.Max()) * float64(scenarioRegionSizeWords) * 8 * 0.20)
	assert.GreaterOrEqual(t, tbl.CapacityOf(partition.Collector), target)
}

func TestScenario2_SingleTLABFromEmpty(t *testing.T) {
	_, fs := newScenarioFreeSet(t, scenarioNumRegions)
	cset := fs.PrepareToRebuild()
	fs.FinishRebuild(cset)

	req := &region.AllocRequest{
		Kind:         region.TLAB,
		SizeWords:    8192, // 64 KiB
		MinSizeWords: 512,  // 4 KiB
	}
	addr, ok := fs.Allocate(req)
	require.True(t, ok)
	assert.Equal(t, region.Address(0), addr)
	assert.True(t, req.InNewRegion)
	assert.Equal(t, uint64(8192), req.ActualSizeWords)
	assert.Equal(t, uint64(8192*8), fs.Table().UsedBy(partition.Mutator))
}

func TestScenario3_HumongousAcrossThreeRegions(t *testing.T) {
	host, fs := newScenarioFreeSet(t, scenarioNumRegions)
	// Skip FinishRebuild: keep the full 16-region Mutator span so the
	// humongous span at the low end is unaffected by reserve placement.
	fs.PrepareToRebuild()
	mutatorCountBefore := fs.Table().Count(partition.Mutator)

	req := &region.AllocRequest{
		Kind:      region.SharedMutator,
		SizeWords: 327680, // 2.5 MiB
	}
	addr, ok := fs.Allocate(req)
	require.True(t, ok)
	assert.Equal(t, region.Address(0), addr)
	assert.True(t, host.Regions[0].HumongousStart)
	assert.True(t, host.Regions[1].HumongousCont)
	assert.True(t, host.Regions[2].HumongousCont)
	assert.Equal(t, uint64(scenarioRegionSizeWords), host.Regions[0].Top)
	assert.Equal(t, uint64(scenarioRegionSizeWords), host.Regions[1].Top)
	assert.Equal(t, uint64(65536), host.Regions[2].Top) // 0.5 MiB remainder

	assert.Equal(t, mutatorCountBefore-3, fs.Table().Count(partition.Mutator))
	// The 3 consumed regions left Mutator's accounting entirely along with
	// their capacity; they no longer contribute to used[Mutator] at all.
	assert.Equal(t, uint64(0), fs.Table().UsedBy(partition.Mutator))
}

func TestScenario4_HumongousSlidesPastPartialRegion(t *testing.T) {
	host, fs := newScenarioFreeSet(t, scenarioNumRegions)
	// Region 1 has 512 KiB (65536 words) remaining, so it isn't empty.
	host.Regions[1].Top = scenarioRegionSizeWords - 65536

	fs.PrepareToRebuild()

	req := &region.AllocRequest{
		Kind:      region.SharedMutator,
		SizeWords: 262144, // 2 MiB, 2 regions
	}
	addr, ok := fs.Allocate(req)
	require.True(t, ok)
	assert.Equal(t, region.Address(2*scenarioRegionSizeWords), addr)
	assert.True(t, host.Regions[2].HumongousStart)
	assert.True(t, host.Regions[3].HumongousCont)
	assert.False(t, host.Regions[0].HumongousStart)
	assert.False(t, host.Regions[1].HumongousStart)
}

func TestScenario5_CollectorStealFromMutatorEmpties(t *testing.T) {
	// A humongous threshold of one full region lets a one-region SharedGC
	// request take the single-region path instead of the contiguous one.
	host := testregion.NewHost(scenarioNumRegions, scenarioRegionSizeWords, scenarioRegionSizeWords, 1)
	fs := New(host, &sync.Mutex{}, scenarioConfig())
	fs.config.EvacReserveOverflow = true

	// No regions reserved to Collector: prepare only, skip FinishRebuild.
	fs.PrepareToRebuild()
	require.True(t, fs.Table().IsEmpty(partition.Collector))
	require.Equal(t, scenarioNumRegions, fs.Table().Count(partition.Mutator))

	req := &region.AllocRequest{
		Kind:      region.SharedGC,
		SizeWords: scenarioRegionSizeWords,
	}
	addr, ok := fs.Allocate(req)
	require.True(t, ok)
	assert.Equal(t, region.Address(15*scenarioRegionSizeWords), addr)

	// The stolen region filled completely and dropped below the PLAB
	// threshold immediately, so it retires out of Collector again.
	assert.Equal(t, partition.NotFree, fs.Table().Membership(15))
	assert.Equal(t, scenarioNumRegions-1, fs.Table().Count(partition.Mutator))
	assert.True(t, fs.Table().IsEmpty(partition.Collector))
	assert.Equal(t, region.Address(15*scenarioRegionSizeWords+scenarioRegionSizeWords), host.Regions[15].UpdateWatermark)
}

func TestScenario6_RetirementAccounting(t *testing.T) {
	// A small, dedicated region size keeps the failure-threshold arithmetic
	// easy to trace by hand: an exact-size request would be filtered out
	// before ever reaching the region (the same alloc_capacity >= min_size
	// pre-check original_source uses), so this exercises the LAB shrink-to-fit
	// path instead, where alignment can strip a small remainder to zero.
	const regionSizeWords = 16 // 128 bytes/region
	host := testregion.NewHost(1, regionSizeWords, 8, 4)
	host.Regions[0].Top = regionSizeWords - 2 // 16 bytes (2 words) remaining

	cfg := scenarioConfig()
	fs := New(host, &sync.Mutex{}, cfg)

	// Region 0 is already a Mutator member with only 16 bytes left, as if
	// prior allocations had consumed the rest; PrepareToRebuild's
	// min-threshold filter would never admit a region this full in the
	// first place, so membership is established directly.
	fs.Table().MakeFree(0, partition.Mutator, 16)
	require.Equal(t, partition.Mutator, fs.Table().Membership(0))

	req := &region.AllocRequest{
		Kind:         region.TLAB,
		SizeWords:    256,
		MinSizeWords: 2,
	}
	_, ok := fs.Allocate(req)
	assert.False(t, ok)

	// The 2 words available align down to 0 (4-word minimum alignment),
	// which is below MinSizeWords, so the shrink-to-fit attempt fails and
	// the region retires without ever calling AllocateInRegion.
	assert.Equal(t, partition.NotFree, fs.Table().Membership(0))
	assert.Equal(t, 0, fs.Table().Count(partition.Mutator))
	// The region's capacity and its embedded used deficit both left
	// Mutator's totals together when it retired.
	assert.Equal(t, uint64(0), fs.Table().UsedBy(partition.Mutator))
	assert.Equal(t, uint64(0), fs.Table().CapacityOf(partition.Mutator))
}
