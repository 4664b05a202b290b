package locus

import (
	"errors"
	"fmt"

	"github.com/Clinical-Genomics/strdrop/internal/vcf"
)

// Case holds the observations of every sample of one VCF, in record order.
type Case struct {
	Samples      []string
	Observations [][]Observation // indexed by sample
}

// ReadCase extracts observations for every sample of a VCF file.
func ReadCase(path string) (*Case, error) {
	parser, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	return ReadCaseFrom(parser)
}

// ReadCaseFrom extracts observations for every sample read by parser.
// Samples with no genotype call at a record are left out for that locus;
// any other record error is returned.
func ReadCaseFrom(parser vcf.VariantParser) (*Case, error) {
	c := &Case{
		Samples:      parser.SampleNames(),
		Observations: make([][]Observation, len(parser.SampleNames())),
	}

	for {
		v, err := parser.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return c, nil
		}

		if v.NumSamples() != len(c.Samples) {
			return nil, fmt.Errorf("%w: line %d has %d samples, header has %d",
				ErrMalformed, parser.LineNumber(), v.NumSamples(), len(c.Samples))
		}

		for s := range c.Samples {
			obs, err := Extract(v, s)
			if errors.Is(err, ErrNoCall) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", parser.LineNumber(), err)
			}
			c.Observations[s] = append(c.Observations[s], obs)
		}
	}
}

// Sample returns the observations of one sample.
func (c *Case) Sample(idx int) ([]Observation, error) {
	if idx < 0 || idx >= len(c.Observations) {
		return nil, fmt.Errorf("sample index %d out of range for %d samples", idx, len(c.Observations))
	}
	return c.Observations[idx], nil
}
