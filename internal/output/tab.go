// Package output writes drop calls as annotated VCF and tab-delimited reports.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/Clinical-Genomics/strdrop/internal/drops"
)

// TabWriter writes per-locus calls in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Sample",
			"TRID",
			"Chrom",
			"Depth",
			"P",
			"Edit_ratio",
			"Depth_ratio",
			"Coverage_warning",
			"Coverage_drop",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single locus annotation.
func (tw *TabWriter) Write(sample string, ann *drops.Annotation) error {
	if sample == "" {
		sample = "-"
	}
	chrom := ann.Chrom
	if chrom == "" {
		chrom = "-"
	}

	values := []string{
		sample,
		ann.TRID,
		chrom,
		formatFloat(ann.Depth),
		formatFloat(ann.P),
		formatFloat(ann.EditRatio),
		formatFloat(ann.DepthRatio),
		yesNo(ann.CoverageWarning),
		yesNo(ann.CoverageDrop),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteCall writes every locus of a call in scoring order.
func (tw *TabWriter) WriteCall(sample string, call *drops.Call) error {
	for _, trid := range call.Loci {
		if err := tw.Write(sample, call.Annotations[trid]); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "-"
}
