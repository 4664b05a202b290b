// Package locus derives per-sample observations from STR variant records.
package locus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Clinical-Genomics/strdrop/internal/vcf"
)

// FORMAT and INFO keys read from STR caller output.
const (
	KeyTRID  = "TRID"
	KeyDepth = "SD"
)

var (
	// ErrMalformed is returned for records missing required fields or
	// carrying genotype indices that do not match the alleles.
	ErrMalformed = errors.New("malformed record")

	// ErrNoCall is returned when the sample has no genotype call.
	ErrNoCall = errors.New("no genotype call")
)

// Observation holds the values extracted for one sample at one locus.
type Observation struct {
	TRID      string
	Chrom     string
	Depth     float64
	EditRatio float64
}

// Extract returns the depth and allele edit ratio of a sample at the
// record's locus. Errors wrap ErrMalformed or ErrNoCall.
func Extract(v *vcf.Variant, sample int) (Observation, error) {
	trid, ok := v.InfoString(KeyTRID)
	if !ok || trid == "" {
		return Observation{}, fmt.Errorf("%w: %s:%d has no %s", ErrMalformed, v.Chrom, v.Pos, KeyTRID)
	}

	obs := Observation{TRID: trid, Chrom: v.Chrom}

	ratio, err := alleleEditRatio(v, sample)
	if err != nil {
		return obs, fmt.Errorf("locus %s: %w", trid, err)
	}
	obs.EditRatio = ratio

	depth, err := Depth(v, sample)
	if err != nil {
		return obs, fmt.Errorf("locus %s: %w", trid, err)
	}
	obs.Depth = depth

	return obs, nil
}

// Depth returns the summed spanning-read depth of a sample. A single SD
// value is alt-only; two values are ref and alt. Negative or unparsable
// values count as 0.
func Depth(v *vcf.Variant, sample int) (float64, error) {
	raw, ok := v.SampleField(sample, KeyDepth)
	if !ok {
		return 0, fmt.Errorf("%w: sample %d has no %s field", ErrMalformed, sample, KeyDepth)
	}

	values := strings.Split(raw, ",")
	var ref, alt int
	switch len(values) {
	case 1:
		alt = clampedInt(values[0])
	case 2:
		ref = clampedInt(values[0])
		alt = clampedInt(values[1])
	}
	return float64(ref + alt), nil
}

func clampedInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// alleleEditRatio compares the two called alleles of a sample.
// A haploid call is compared with itself.
func alleleEditRatio(v *vcf.Variant, sample int) (float64, error) {
	gt, err := v.Genotype(sample)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	alleles := make([]string, 0, 2)
	for _, idx := range gt {
		if idx < 0 {
			return 0, ErrNoCall
		}
		seq, ok := v.Allele(idx)
		if !ok {
			return 0, fmt.Errorf("%w: genotype index %d out of range for %d ALT alleles",
				ErrMalformed, idx, len(v.Alts()))
		}
		alleles = append(alleles, seq)
	}

	switch len(alleles) {
	case 1:
		return EditRatio(alleles[0], alleles[0]), nil
	case 2:
		return EditRatio(alleles[0], alleles[1]), nil
	default:
		return 0, fmt.Errorf("%w: unsupported ploidy %d", ErrMalformed, len(alleles))
	}
}
