package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Clinical-Genomics/strdrop/internal/locus"
)

func TestDistributions_MergeThenSort(t *testing.T) {
	a := NewDistributions()
	a.Add(locus.Observation{TRID: "L1", Chrom: "chrX", Depth: 9, EditRatio: 0.9})
	a.Add(locus.Observation{TRID: "L1", Chrom: "chr1", Depth: 3, EditRatio: 1})

	b := NewDistributions()
	b.Add(locus.Observation{TRID: "L1", Chrom: "chr2", Depth: 3, EditRatio: 0.2})
	b.Add(locus.Observation{TRID: "L2", Chrom: "chrY", Depth: 0, EditRatio: 1})

	a.Merge(b)

	// Merge appends without sorting.
	assert.Equal(t, []float64{9, 3, 3}, a.Depths["L1"])

	a.Sort()
	assert.Equal(t, []float64{3, 3, 9}, a.Depths["L1"])
	assert.Equal(t, []float64{0.2, 0.9, 1}, a.EditRatios["L1"])
	assert.Equal(t, map[string]string{"L1": "chrX", "L2": "chrY"}, a.Chroms)

	depths, ok := a.Depth("L2")
	assert.True(t, ok)
	assert.Equal(t, []float64{0}, depths)

	_, ok = a.Depth("L3")
	assert.False(t, ok)
}
