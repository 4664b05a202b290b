// Package drops calls STR coverage drops by scoring a case's per-locus depth
// against an empirical reference distribution.
package drops

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Clinical-Genomics/strdrop/internal/locus"
)

var (
	// ErrMissingLocus is returned when a case locus has no reference distribution.
	ErrMissingLocus = errors.New("locus missing from reference")

	// ErrNoLoci is returned when a case has no loci to score.
	ErrNoLoci = errors.New("no loci to score")
)

// Params configures drop calling.
type Params struct {
	Alpha              float64 // family-wise error rate, Bonferroni corrected per case
	EditThreshold      float64 // minimum allele edit ratio for a call
	FractionThreshold  float64 // depth ratio below which a locus is low
	SexChromosomeAware bool    // relax FractionThreshold on X and Y
}

// DefaultParams returns the default calling parameters.
func DefaultParams() Params {
	return Params{
		Alpha:             0.05,
		EditThreshold:     0.9,
		FractionThreshold: 0.5,
	}
}

// Reference provides sorted reference depths per locus.
type Reference interface {
	Depth(trid string) ([]float64, bool)
}

// Annotation is the result of scoring one locus. Flags that are not set
// are false.
type Annotation struct {
	TRID            string
	Chrom           string
	Depth           float64
	P               float64 // empirical lower-tail probability
	EditRatio       float64
	DepthRatio      float64 // depth relative to the case average
	CoverageWarning bool
	CoverageDrop    bool
}

// Call holds the annotations of one case.
type Call struct {
	Annotations      map[string]*Annotation
	Loci             []string // scored loci in input order
	PThreshold       float64
	CaseAverageDepth float64
}

// Drops returns the loci called as coverage drops, in input order.
func (c *Call) Drops() []string {
	var out []string
	for _, trid := range c.Loci {
		if c.Annotations[trid].CoverageDrop {
			out = append(out, trid)
		}
	}
	return out
}

// Caller scores case observations against a reference.
type Caller struct {
	ref    Reference
	params Params
	logger *zap.Logger
}

// NewCaller creates a caller for the given reference.
func NewCaller(ref Reference, params Params) *Caller {
	return &Caller{
		ref:    ref,
		params: params,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and drop messages.
func (c *Caller) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Params returns the calling parameters.
func (c *Caller) Params() Params {
	return c.params
}

// Score annotates every locus of one case. Only the first observation of a
// locus is used. Every locus must be present in the reference.
func (c *Caller) Score(observations []locus.Observation) (*Call, error) {
	seen := make(map[string]bool, len(observations))
	var loci []locus.Observation
	for _, o := range observations {
		if seen[o.TRID] {
			continue
		}
		seen[o.TRID] = true
		loci = append(loci, o)
	}
	if len(loci) == 0 {
		return nil, ErrNoLoci
	}

	n := float64(len(loci))
	call := &Call{
		Annotations: make(map[string]*Annotation, len(loci)),
		Loci:        make([]string, 0, len(loci)),
		PThreshold:  c.params.Alpha / n,
	}

	var caseTotal float64
	for _, o := range loci {
		depths, ok := c.ref.Depth(o.TRID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingLocus, o.TRID)
		}
		caseTotal += o.Depth
		call.Loci = append(call.Loci, o.TRID)
		call.Annotations[o.TRID] = &Annotation{
			TRID:      o.TRID,
			Chrom:     o.Chrom,
			Depth:     o.Depth,
			P:         EmpiricalP(depths, o.Depth),
			EditRatio: o.EditRatio,
		}
	}

	call.CaseAverageDepth = caseTotal / n
	c.logger.Info("case average depth", zap.Float64("depth", call.CaseAverageDepth))

	for _, trid := range call.Loci {
		c.flag(call, call.Annotations[trid])
	}

	return call, nil
}

// flag sets the depth ratio and the warning and drop flags of a locus.
func (c *Caller) flag(call *Call, a *Annotation) {
	if call.CaseAverageDepth > 0 {
		a.DepthRatio = a.Depth / call.CaseAverageDepth
	}

	fraction := EffectiveFraction(c.params, a.Chrom)
	consistent := a.EditRatio > c.params.EditThreshold
	lowP := a.P < call.PThreshold
	lowRatio := a.DepthRatio < fraction

	if lowP && consistent {
		c.logger.Info("locus overall low",
			zap.String("trid", a.TRID),
			zap.Float64("depth", a.Depth),
			zap.Float64("p", a.P),
			zap.Float64("edit_ratio", a.EditRatio))
		a.CoverageWarning = true
	}

	if lowRatio && consistent {
		c.logger.Info("locus coverage low relative to case average",
			zap.String("trid", a.TRID),
			zap.Float64("depth", a.Depth),
			zap.Float64("depth_ratio", a.DepthRatio),
			zap.Float64("fraction", fraction),
			zap.Float64("edit_ratio", a.EditRatio))
		a.CoverageWarning = true
	}

	if lowRatio && lowP && consistent {
		c.logger.Warn("calling coverage drop", zap.String("trid", a.TRID))
		a.CoverageDrop = true
	}
}

// EmpiricalP returns the share of the total reference depth contributed by
// values strictly below x. An empty or all-zero reference gives 0.
func EmpiricalP(sorted []float64, x float64) float64 {
	var below, total float64
	for _, v := range sorted {
		if v < x {
			below += v
		}
		total += v
	}
	if total <= 0 {
		return 0
	}
	return below / total
}

// EffectiveFraction returns the depth ratio threshold for a chromosome.
// With sex chromosome awareness, loci on X or Y use FractionThreshold - 0.5,
// floored at 0.05.
func EffectiveFraction(p Params, chrom string) float64 {
	if p.SexChromosomeAware && (strings.Contains(chrom, "X") || strings.Contains(chrom, "Y")) {
		return max(p.FractionThreshold-0.5, 0.05)
	}
	return p.FractionThreshold
}
