package locus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clinical-Genomics/strdrop/internal/vcf"
)

const caseVCF = `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	PROBAND	MOTHER
chr4	3074876	.	CAGCAG	CAGCAGCAG	.	PASS	TRID=HTT	GT:SD	0/1:10,4	0/0:18
chrX	67545316	.	GCA	.	.	PASS	TRID=AR	GT:SD	./.:0	0/0:9
`

func writeCase(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "case.vcf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCase(t *testing.T) {
	c, err := ReadCase(writeCase(t, caseVCF))
	require.NoError(t, err)

	assert.Equal(t, []string{"PROBAND", "MOTHER"}, c.Samples)

	proband, err := c.Sample(0)
	require.NoError(t, err)
	require.Len(t, proband, 1)
	assert.Equal(t, "HTT", proband[0].TRID)
	assert.Equal(t, 14.0, proband[0].Depth)
	assert.InDelta(t, 0.8, proband[0].EditRatio, 1e-12)

	mother, err := c.Sample(1)
	require.NoError(t, err)
	require.Len(t, mother, 2)
	assert.Equal(t, "AR", mother[1].TRID)
	assert.Equal(t, "chrX", mother[1].Chrom)

	_, err = c.Sample(2)
	assert.Error(t, err)
}

func TestReadCase_Malformed(t *testing.T) {
	bad := `##fileformat=VCFv4.2
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
chr4	3074876	.	CAG	.	.	PASS	TRID=HTT	GT:SD	0/1:10,4
`
	_, err := ReadCase(writeCase(t, bad))
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorContains(t, err, "line 3")
}

func TestReadCase_SampleCountMismatch(t *testing.T) {
	bad := `#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2
chr4	3074876	.	CAG	.	.	PASS	TRID=HTT	GT:SD	0/0:10
`
	_, err := ReadCase(writeCase(t, bad))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadCaseFrom_Reader(t *testing.T) {
	parser, err := vcf.NewParserFromReader(strings.NewReader(caseVCF))
	require.NoError(t, err)

	c, err := ReadCaseFrom(parser)
	require.NoError(t, err)
	assert.Len(t, c.Observations[0], 1)
	assert.Len(t, c.Observations[1], 2)
}
