package vcf

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trgtVCF = `##fileformat=VCFv4.2
##INFO=<ID=TRID,Number=1,Type=String,Description="Tandem repeat ID">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=SD,Number=.,Type=Integer,Description="Number of spanning reads supporting per allele">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	HG002
chr1	1000	.	CAGCAGCAG	CAGCAG	.	.	TRID=L1	GT:SD	0/1:12,10
chrX	2000	.	ATATAT	.	.	PASS	TRID=L2	GT:SD	0/0:25
`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readAll(t *testing.T, p *Parser) []*Variant {
	t.Helper()
	var variants []*Variant
	for {
		v, err := p.Next()
		require.NoError(t, err)
		if v == nil {
			return variants
		}
		variants = append(variants, v)
	}
}

func TestParser_PlainVCF(t *testing.T) {
	path := writeTestFile(t, "sample.vcf", trgtVCF)

	parser, err := NewParser(path)
	require.NoError(t, err)
	defer parser.Close()

	assert.Equal(t, []string{"HG002"}, parser.SampleNames())
	assert.Len(t, parser.Header(), 5)

	variants := readAll(t, parser)
	require.Len(t, variants, 2)

	v := variants[0]
	assert.Equal(t, "chr1", v.Chrom)
	assert.Equal(t, int64(1000), v.Pos)
	assert.Equal(t, "CAGCAGCAG", v.Ref)
	assert.Equal(t, []string{"CAGCAG"}, v.Alts())
	assert.Equal(t, ".", v.RawQual)
	assert.Equal(t, "TRID=L1", v.RawInfo)
	assert.Equal(t, []string{"GT", "SD"}, v.Format)
	assert.Equal(t, 1, v.NumSamples())

	trid, ok := v.InfoString("TRID")
	require.True(t, ok)
	assert.Equal(t, "L1", trid)

	assert.Nil(t, variants[1].Alts())
}

func TestParser_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.vcf.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(trgtVCF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	parser, err := NewParser(path)
	require.NoError(t, err)
	defer parser.Close()

	assert.Len(t, readAll(t, parser), 2)
}

func TestParser_BGZF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.vcf.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	bg := bgzf.NewWriter(f, 1)
	_, err = bg.Write([]byte(trgtVCF))
	require.NoError(t, err)
	require.NoError(t, bg.Close())
	require.NoError(t, f.Close())

	parser, err := NewParser(path)
	require.NoError(t, err)
	defer parser.Close()

	variants := readAll(t, parser)
	require.Len(t, variants, 2)
	assert.Equal(t, "chrX", variants[1].Chrom)
}

func TestParser_NoTrailingNewline(t *testing.T) {
	parser, err := NewParserFromReader(strings.NewReader(strings.TrimRight(trgtVCF, "\n")))
	require.NoError(t, err)
	assert.Len(t, readAll(t, parser), 2)
}

func TestParser_MissingChromHeader(t *testing.T) {
	_, err := NewParserFromReader(strings.NewReader("##fileformat=VCFv4.2\nchr1\t1\t.\tA\tC\t.\t.\t.\n"))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
}

func TestParser_ShortLine(t *testing.T) {
	parser, err := NewParserFromReader(strings.NewReader("#CHROM\tPOS\n1\t100\t.\n"))
	require.NoError(t, err)

	_, err = parser.Next()
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "expected at least 8 columns")
}

func TestParser_MissingFile(t *testing.T) {
	_, err := NewParser(filepath.Join(t.TempDir(), "absent.vcf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseError(t *testing.T) {
	err := &ParseError{
		Line:    42,
		Message: "expected 8 columns, found 7",
	}

	assert.Equal(t, "vcf parse error at line 42: expected 8 columns, found 7", err.Error())
}
