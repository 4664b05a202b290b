// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant represents a single record from a VCF file.
type Variant struct {
	Chrom   string                 // Chromosome name (e.g., "X", "chrX")
	Pos     int64                  // 1-based genomic position
	ID      string                 // Variant identifier
	Ref     string                 // Reference allele
	Alt     string                 // ALT column, comma-separated for multi-allelic records
	Qual    float64                // Quality score
	RawQual string                 // QUAL column as written in the file
	Filter  string                 // Filter status (PASS, "." or ;-separated filter names)
	Info    map[string]interface{} // INFO field key-value pairs
	RawInfo string                 // INFO column as written in the file
	Format  []string               // FORMAT keys, empty when the record has no samples
	Samples []string               // raw sample columns, one per sample
}

// Alts returns the alternate alleles. A missing ALT (".") yields nil.
func (v *Variant) Alts() []string {
	if v.Alt == "" || v.Alt == "." {
		return nil
	}
	return strings.Split(v.Alt, ",")
}

// Allele returns the allele sequence for a genotype index:
// 0 is REF, k > 0 is the k-th ALT allele.
func (v *Variant) Allele(idx int) (string, bool) {
	if idx == 0 {
		return v.Ref, true
	}
	alts := v.Alts()
	if idx < 0 || idx > len(alts) {
		return "", false
	}
	return alts[idx-1], true
}

// InfoString returns the string value of an INFO key.
func (v *Variant) InfoString(key string) (string, bool) {
	val, ok := v.Info[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// NumSamples returns the number of sample columns.
func (v *Variant) NumSamples() int {
	return len(v.Samples)
}

// FormatIndex returns the position of key in the FORMAT column, or -1.
func (v *Variant) FormatIndex(key string) int {
	for i, k := range v.Format {
		if k == key {
			return i
		}
	}
	return -1
}

// SampleField returns the raw value of a FORMAT key for a sample.
// Trailing fields dropped from the sample column are reported as ".".
func (v *Variant) SampleField(sample int, key string) (string, bool) {
	if sample < 0 || sample >= len(v.Samples) {
		return "", false
	}
	idx := v.FormatIndex(key)
	if idx < 0 {
		return "", false
	}
	values := strings.Split(v.Samples[sample], ":")
	if idx >= len(values) {
		return ".", true
	}
	return values[idx], true
}

// Genotype parses the GT field of a sample into allele indices.
// Missing alleles (".") are returned as -1.
func (v *Variant) Genotype(sample int) ([]int, error) {
	gt, ok := v.SampleField(sample, "GT")
	if !ok {
		return nil, fmt.Errorf("sample %d has no GT field", sample)
	}
	if gt == "." || gt == "" {
		return []int{-1}, nil
	}

	parts := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
	alleles := make([]int, len(parts))
	for i, p := range parts {
		if p == "." {
			alleles[i] = -1
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid genotype %q: %w", gt, err)
		}
		alleles[i] = n
	}
	return alleles, nil
}

