package reference

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Clinical-Genomics/strdrop/internal/duckdb"
)

const metaFileCount = "file_count"

// Load returns the reference distributions for a run. A regular file at ref
// is read as a cache. For a directory, an existing cache at cachePath is
// loaded instead of scanning ref; otherwise ref is aggregated and, when
// cachePath is set, the result is written there.
func (a *Aggregator) Load(ref, cachePath string) (*Distributions, error) {
	info, err := os.Stat(ref)
	if err != nil {
		return nil, fmt.Errorf("reference path: %w", err)
	}
	if !info.IsDir() {
		return LoadCached(ref)
	}

	if cachePath != "" {
		if cacheInfo, err := os.Stat(cachePath); err == nil {
			if info.ModTime().After(cacheInfo.ModTime()) {
				a.logger.Warn("reference directory changed after cache was written",
					zap.String("dir", ref), zap.String("cache", cachePath))
			}
			a.logger.Info("loading cached reference distributions", zap.String("cache", cachePath))
			return LoadCached(cachePath)
		}
	}

	d, err := a.Aggregate(ref)
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if err := WriteCache(cachePath, d); err != nil {
			return nil, err
		}
		a.logger.Info("wrote reference cache", zap.String("cache", cachePath))
	}
	return d, nil
}

// LoadCached reads distributions persisted by WriteCache. DuckDB databases
// are recognised by a .duckdb or .db extension, anything else is JSON.
func LoadCached(path string) (*Distributions, error) {
	if isDuckDBPath(path) {
		return readDuckDB(path)
	}
	return ReadJSON(path)
}

// WriteCache persists distributions as JSON or, for .duckdb/.db paths, DuckDB.
func WriteCache(path string, d *Distributions) error {
	if isDuckDBPath(path) {
		return writeDuckDB(path, d)
	}
	return WriteJSON(path, d)
}

func isDuckDBPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".duckdb", ".db":
		return true
	}
	return false
}

// WriteJSON writes the depth and edit ratio mappings as a two element array.
func WriteJSON(path string, d *Distributions) error {
	data, err := json.Marshal([2]map[string][]float64{d.Depths, d.EditRatios})
	if err != nil {
		return fmt.Errorf("encode reference cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write reference cache: %w", err)
	}
	return nil
}

// ReadJSON reads a cache written by WriteJSON. Chromosomes are not cached.
func ReadJSON(path string) (*Distributions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference cache: %w", err)
	}

	var pair []map[string][]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("decode reference cache: %w", err)
	}
	if len(pair) != 2 {
		return nil, fmt.Errorf("decode reference cache: expected 2 mappings, found %d", len(pair))
	}

	d := NewDistributions()
	if pair[0] != nil {
		d.Depths = pair[0]
	}
	if pair[1] != nil {
		d.EditRatios = pair[1]
	}
	d.Sort()
	return d, nil
}

func writeDuckDB(path string, d *Distributions) error {
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	if err := store.WriteDistribution(duckdb.DepthTable, d.Depths); err != nil {
		return err
	}
	if err := store.WriteDistribution(duckdb.EditRatioTable, d.EditRatios); err != nil {
		return err
	}
	if err := store.WriteChromosomes(d.Chroms); err != nil {
		return err
	}
	return store.SetMeta(metaFileCount, strconv.Itoa(d.FileCount))
}

func readDuckDB(path string) (*Distributions, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reference cache: %w", err)
	}

	store, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	d := NewDistributions()
	if d.Depths, err = store.Distribution(duckdb.DepthTable); err != nil {
		return nil, err
	}
	if d.EditRatios, err = store.Distribution(duckdb.EditRatioTable); err != nil {
		return nil, err
	}
	if d.Chroms, err = store.Chromosomes(); err != nil {
		return nil, err
	}

	count, ok, err := store.Meta(metaFileCount)
	if err != nil {
		return nil, err
	}
	if ok {
		d.FileCount, _ = strconv.Atoi(count)
	}
	return d, nil
}
