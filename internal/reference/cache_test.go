package reference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDistributions() *Distributions {
	d := NewDistributions()
	d.Depths["L1"] = []float64{10, 10, 30}
	d.EditRatios["L1"] = []float64{0.5, 1}
	d.Depths["L2"] = []float64{2}
	d.EditRatios["L2"] = []float64{1}
	d.Chroms["L1"] = "chr1"
	d.Chroms["L2"] = "chrY"
	d.FileCount = 3
	return d
}

func TestJSONCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.json")
	require.NoError(t, WriteCache(path, sampleDistributions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"L1":[10,10,30],"L2":[2]},{"L1":[0.5,1],"L2":[1]}]`, string(data))

	d, err := LoadCached(path)
	require.NoError(t, err)
	assert.Equal(t, sampleDistributions().Depths, d.Depths)
	assert.Equal(t, sampleDistributions().EditRatios, d.EditRatios)
	assert.Empty(t, d.Chroms)
}

func TestJSONCache_SortsOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"L1":[3,1.5,2]},{"L1":[1,0.25]}]`), 0644))

	d, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2, 3}, d.Depths["L1"])
	assert.Equal(t, []float64{0.25, 1}, d.EditRatios["L1"])
}

func TestJSONCache_Invalid(t *testing.T) {
	dir := t.TempDir()

	single := filepath.Join(dir, "single.json")
	require.NoError(t, os.WriteFile(single, []byte(`[{"L1":[1]}]`), 0644))
	_, err := ReadJSON(single)
	assert.ErrorContains(t, err, "expected 2 mappings")

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{not json`), 0644))
	_, err = ReadJSON(garbage)
	assert.Error(t, err)

	_, err = ReadJSON(filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDuckDBCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.duckdb")
	require.NoError(t, WriteCache(path, sampleDistributions()))

	// Rewriting replaces the previous contents.
	require.NoError(t, WriteCache(path, sampleDistributions()))

	d, err := LoadCached(path)
	require.NoError(t, err)
	assert.Equal(t, sampleDistributions(), d)
}

func TestDuckDBCache_Missing(t *testing.T) {
	_, err := LoadCached(filepath.Join(t.TempDir(), "absent.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_ReferenceIsCacheFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.json")
	require.NoError(t, WriteJSON(path, sampleDistributions()))

	d, err := NewAggregator().Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10, 30}, d.Depths["L1"])
}

func TestLoad_ExistingCacheSkipsAggregation(t *testing.T) {
	dir := t.TempDir()
	writeVCF(t, dir, "ref.vcf", "chr1 L9 0/0 99")

	cache := filepath.Join(t.TempDir(), "reference.json")
	require.NoError(t, WriteJSON(cache, sampleDistributions()))

	d, err := NewAggregator().Load(dir, cache)
	require.NoError(t, err)
	assert.NotContains(t, d.Depths, "L9")
	assert.Contains(t, d.Depths, "L1")
}

func TestLoad_WritesCacheAfterAggregation(t *testing.T) {
	dir := t.TempDir()
	writeVCF(t, dir, "ref.vcf", "chr1 L9 0/0 99")

	cache := filepath.Join(t.TempDir(), "reference.duckdb")
	d, err := NewAggregator().Load(dir, cache)
	require.NoError(t, err)
	assert.Equal(t, []float64{99}, d.Depths["L9"])

	cached, err := LoadCached(cache)
	require.NoError(t, err)
	assert.Equal(t, d, cached)
}

func TestLoad_MissingReference(t *testing.T) {
	_, err := NewAggregator().Load(filepath.Join(t.TempDir(), "absent"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
