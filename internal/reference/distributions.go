// Package reference builds per-locus depth and edit ratio distributions from
// a cohort of reference STR VCFs.
package reference

import (
	"slices"
	"sort"

	"github.com/Clinical-Genomics/strdrop/internal/locus"
)

// Distributions holds, per locus (TRID), the ascending depth and edit ratio
// observations of the reference cohort and the locus chromosome.
// Distributions are read-only once built or loaded.
type Distributions struct {
	Depths     map[string][]float64
	EditRatios map[string][]float64
	Chroms     map[string]string
	FileCount  int
}

// NewDistributions returns empty distributions.
func NewDistributions() *Distributions {
	return &Distributions{
		Depths:     make(map[string][]float64),
		EditRatios: make(map[string][]float64),
		Chroms:     make(map[string]string),
	}
}

// Add appends one observation. The first chromosome seen for a locus wins.
func (d *Distributions) Add(obs locus.Observation) {
	d.Depths[obs.TRID] = append(d.Depths[obs.TRID], obs.Depth)
	d.EditRatios[obs.TRID] = append(d.EditRatios[obs.TRID], obs.EditRatio)
	if _, ok := d.Chroms[obs.TRID]; !ok {
		d.Chroms[obs.TRID] = obs.Chrom
	}
}

// Merge appends every observation of other to d without sorting.
func (d *Distributions) Merge(other *Distributions) {
	for trid, values := range other.Depths {
		d.Depths[trid] = append(d.Depths[trid], values...)
	}
	for trid, values := range other.EditRatios {
		d.EditRatios[trid] = append(d.EditRatios[trid], values...)
	}
	for trid, chrom := range other.Chroms {
		if _, ok := d.Chroms[trid]; !ok {
			d.Chroms[trid] = chrom
		}
	}
}

// Sort orders every per-locus sequence ascending, keeping duplicates.
func (d *Distributions) Sort() {
	for _, values := range d.Depths {
		slices.SortStableFunc(values, compareFloat)
	}
	for _, values := range d.EditRatios {
		slices.SortStableFunc(values, compareFloat)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Depth returns the sorted depth distribution of a locus.
func (d *Distributions) Depth(trid string) ([]float64, bool) {
	values, ok := d.Depths[trid]
	return values, ok
}

// Loci returns every locus with a depth distribution, sorted.
func (d *Distributions) Loci() []string {
	trids := make([]string, 0, len(d.Depths))
	for trid := range d.Depths {
		trids = append(trids, trid)
	}
	sort.Strings(trids)
	return trids
}
