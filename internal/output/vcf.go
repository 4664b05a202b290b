package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Clinical-Genomics/strdrop/internal/drops"
	"github.com/Clinical-Genomics/strdrop/internal/locus"
	"github.com/Clinical-Genomics/strdrop/internal/vcf"
)

// Scope selects where annotations are written in a record.
type Scope string

// Annotation scopes.
const (
	ScopeInfo   Scope = "info"   // INFO fields for a single scored sample
	ScopeFormat Scope = "format" // FORMAT fields for every sample
)

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(s)) {
	case ScopeInfo:
		return ScopeInfo, nil
	case ScopeFormat:
		return ScopeFormat, nil
	}
	return "", fmt.Errorf("unknown annotation scope %q (want info or format)", s)
}

// Field and filter IDs written to annotated records.
const (
	FieldP          = "STRDROP_P"
	FieldEditRatio  = "STRDROP_EDR"
	FieldDepthRatio = "STRDROP_SDR"
	FieldDropInfo   = "STRDROP"
	FieldDropFormat = "DROP"
	FilterLowDepth  = "LowDepth"
)

type fieldDef struct {
	id, number, typ, description string
}

var valueFields = []fieldDef{
	{FieldP, "1", "Float", "Strdrop coverage sequencing depth level probability"},
	{FieldEditRatio, "1", "Float", "Strdrop allele similarity Levenshtein edit distance ratio"},
	{FieldDepthRatio, "1", "Float", "Strdrop case average adjusted sequencing depth ratio"},
}

// VCFWriter copies VCF records, adding drop annotations to records whose
// TRID was scored.
type VCFWriter struct {
	w           *bufio.Writer
	headerLines []string // original VCF header lines (## and #CHROM)
	scope       Scope
	calls       []*drops.Call // one per sample for ScopeFormat, one for ScopeInfo
}

// NewVCFWriter creates a new VCF output writer. For ScopeInfo only calls[0]
// is used; for ScopeFormat calls is indexed by sample and may hold nil.
func NewVCFWriter(w io.Writer, headerLines []string, scope Scope, calls []*drops.Call) *VCFWriter {
	return &VCFWriter{
		w:           bufio.NewWriter(w),
		headerLines: headerLines,
		scope:       scope,
		calls:       calls,
	}
}

// WriteHeader writes the original header with the strdrop field and filter
// definitions inserted before #CHROM. Definitions already present are kept.
func (vw *VCFWriter) WriteHeader() error {
	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, "#CHROM") {
			for _, def := range vw.definitions() {
				if vw.declared(def) {
					continue
				}
				if _, err := vw.w.WriteString(def + "\n"); err != nil {
					return err
				}
			}
		}
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (vw *VCFWriter) definitions() []string {
	section := "INFO"
	if vw.scope == ScopeFormat {
		section = "FORMAT"
	}

	var defs []string
	for _, f := range valueFields {
		defs = append(defs, fmt.Sprintf("##%s=<ID=%s,Number=%s,Type=%s,Description=\"%s\">",
			section, f.id, f.number, f.typ, f.description))
	}
	if vw.scope == ScopeFormat {
		defs = append(defs, fmt.Sprintf("##FORMAT=<ID=%s,Number=1,Type=Integer,Description=\"Strdrop coverage drop called (1) or not (0)\">", FieldDropFormat))
	} else {
		defs = append(defs, fmt.Sprintf("##INFO=<ID=%s,Number=0,Type=Flag,Description=\"Strdrop coverage drop called\">", FieldDropInfo))
	}
	defs = append(defs, fmt.Sprintf("##FILTER=<ID=%s,Description=\"Strdrop coverage drop\">", FilterLowDepth))
	return defs
}

// declared reports whether the header already holds a line with the same
// section and ID as def.
func (vw *VCFWriter) declared(def string) bool {
	prefix, _, _ := strings.Cut(def, ",")
	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, prefix+",") || strings.HasPrefix(line, prefix+">") {
			return true
		}
	}
	return false
}

// Write writes one record, annotated if its TRID was scored.
func (vw *VCFWriter) Write(v *vcf.Variant) error {
	trid, _ := v.InfoString(locus.KeyTRID)

	out := *v
	if trid != "" {
		switch vw.scope {
		case ScopeFormat:
			vw.annotateSamples(&out, trid)
		default:
			vw.annotateInfo(&out, trid)
		}
	}

	_, err := vw.w.WriteString(formatLine(&out))
	return err
}

// Flush flushes the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

func (vw *VCFWriter) annotateInfo(v *vcf.Variant, trid string) {
	if len(vw.calls) == 0 || vw.calls[0] == nil {
		return
	}
	ann, ok := vw.calls[0].Annotations[trid]
	if !ok {
		return
	}

	fields := []string{
		FieldP + "=" + formatFloat(ann.P),
		FieldEditRatio + "=" + formatFloat(ann.EditRatio),
		FieldDepthRatio + "=" + formatFloat(ann.DepthRatio),
	}
	if ann.CoverageDrop {
		fields = append(fields, FieldDropInfo)
		v.Filter = addFilter(v.Filter, FilterLowDepth)
	}
	v.RawInfo = setInfo(v.RawInfo, fields)
}

func (vw *VCFWriter) annotateSamples(v *vcf.Variant, trid string) {
	anns := make([]*drops.Annotation, len(v.Samples))
	annotated := false
	for s := range v.Samples {
		if s >= len(vw.calls) || vw.calls[s] == nil {
			continue
		}
		if ann, ok := vw.calls[s].Annotations[trid]; ok {
			anns[s] = ann
			annotated = true
		}
	}
	if !annotated {
		return
	}

	keys := []string{FieldP, FieldEditRatio, FieldDepthRatio, FieldDropFormat}
	format, samples := stripFormat(v.Format, v.Samples)
	format = append(format, keys...)

	drop := false
	for s, ann := range anns {
		values := []string{".", ".", ".", "."}
		if ann != nil {
			values = []string{
				formatFloat(ann.P),
				formatFloat(ann.EditRatio),
				formatFloat(ann.DepthRatio),
				"0",
			}
			if ann.CoverageDrop {
				values[3] = "1"
				drop = true
			}
		}
		col := padSample(samples[s], len(format)-len(keys))
		if col != "" {
			col += ":"
		}
		samples[s] = col + strings.Join(values, ":")
	}

	v.Format = format
	v.Samples = samples
	if drop {
		v.Filter = addFilter(v.Filter, FilterLowDepth)
	}
}

// setInfo removes any existing strdrop keys from a raw INFO string and
// appends fields.
func setInfo(rawInfo string, fields []string) string {
	var kept []string
	if rawInfo != "" && rawInfo != "." {
		for _, field := range strings.Split(rawInfo, ";") {
			key, _, _ := strings.Cut(field, "=")
			if isStrdropKey(key) {
				continue
			}
			kept = append(kept, field)
		}
	}
	kept = append(kept, fields...)
	if len(kept) == 0 {
		return "."
	}
	return strings.Join(kept, ";")
}

func isStrdropKey(key string) bool {
	switch key {
	case FieldP, FieldEditRatio, FieldDepthRatio, FieldDropInfo, FieldDropFormat:
		return true
	}
	return false
}

// stripFormat removes strdrop keys from a FORMAT column and the matching
// sample values.
func stripFormat(format, samples []string) ([]string, []string) {
	drop := make(map[int]bool)
	var kept []string
	for i, k := range format {
		if isStrdropKey(k) {
			drop[i] = true
			continue
		}
		kept = append(kept, k)
	}

	out := make([]string, len(samples))
	for s, col := range samples {
		if len(drop) == 0 {
			out[s] = col
			continue
		}
		var values []string
		for i, val := range strings.Split(col, ":") {
			if !drop[i] {
				values = append(values, val)
			}
		}
		out[s] = strings.Join(values, ":")
	}
	return kept, out
}

// padSample restores trailing fields dropped from a sample column so that
// appended values line up with their FORMAT keys.
func padSample(col string, n int) string {
	have := len(strings.Split(col, ":"))
	if col == "" {
		have = 0
	}
	if have >= n {
		return col
	}
	parts := make([]string, 0, n)
	if col != "" {
		parts = append(parts, col)
	}
	for i := have; i < n; i++ {
		parts = append(parts, ".")
	}
	return strings.Join(parts, ":")
}

// addFilter appends a filter tag. Unlike a plain append, PASS and "." are
// replaced since a failed record cannot also pass; an existing tag is not
// repeated.
func addFilter(filter, tag string) string {
	if filter == "" || filter == "." || filter == "PASS" {
		return tag
	}
	for _, f := range strings.Split(filter, ";") {
		if f == tag {
			return filter
		}
	}
	return filter + ";" + tag
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatLine writes a record as a tab-delimited VCF line.
func formatLine(v *vcf.Variant) string {
	var lb strings.Builder
	lb.Grow(256)

	lb.WriteString(v.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(v.Pos, 10))
	lb.WriteByte('\t')
	lb.WriteString(orDot(v.ID))
	lb.WriteByte('\t')
	lb.WriteString(v.Ref)
	lb.WriteByte('\t')
	lb.WriteString(orDot(v.Alt))
	lb.WriteByte('\t')
	switch {
	case v.RawQual != "":
		lb.WriteString(v.RawQual)
	case v.Qual != 0:
		lb.WriteString(strconv.FormatFloat(v.Qual, 'g', -1, 64))
	default:
		lb.WriteByte('.')
	}
	lb.WriteByte('\t')
	lb.WriteString(orDot(v.Filter))
	lb.WriteByte('\t')
	lb.WriteString(orDot(v.RawInfo))

	// Append FORMAT + sample columns if present
	if len(v.Format) > 0 {
		lb.WriteByte('\t')
		lb.WriteString(strings.Join(v.Format, ":"))
		for _, s := range v.Samples {
			lb.WriteByte('\t')
			lb.WriteString(s)
		}
	}

	lb.WriteByte('\n')
	return lb.String()
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}
