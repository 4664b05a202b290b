package reference

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Clinical-Genomics/strdrop/internal/locus"
	"github.com/Clinical-Genomics/strdrop/internal/vcf"
)

// Aggregator scans a directory of reference VCFs into Distributions.
type Aggregator struct {
	workers int
	logger  *zap.Logger
}

// NewAggregator creates an aggregator using one worker per CPU.
func NewAggregator() *Aggregator {
	return &Aggregator{
		logger: zap.NewNop(),
	}
}

// SetWorkers sets the number of files parsed concurrently (0 = NumCPU).
func (a *Aggregator) SetWorkers(n int) {
	a.workers = n
}

// SetLogger sets the logger for progress and skipped-file messages.
func (a *Aggregator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Aggregate parses every entry of dir and returns the merged, sorted
// distributions. Entries that are missing, unreadable or malformed are
// skipped and not counted in FileCount.
func (a *Aggregator) Aggregate(dir string) (*Distributions, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read reference directory: %w", err)
	}

	items := make(chan FileItem, len(entries))
	seq := 0
	for _, e := range entries {
		if e.IsDir() {
			a.logger.Debug("skipping reference subdirectory", zap.String("path", e.Name()))
			continue
		}
		items <- FileItem{Seq: seq, Path: filepath.Join(dir, e.Name())}
		seq++
	}
	close(items)

	merged := NewDistributions()
	results := a.ParallelParse(items, a.workers)

	if err := OrderedCollect(results, func(r FileResult) error {
		if r.Err != nil {
			if errors.Is(r.Err, fs.ErrNotExist) || errors.Is(r.Err, fs.ErrPermission) {
				a.logger.Debug("skipping missing reference file",
					zap.String("path", r.Path), zap.Error(r.Err))
			} else {
				a.logger.Error("discarding reference file",
					zap.String("path", r.Path), zap.Error(r.Err))
			}
			return nil
		}
		merged.Merge(r.Dist)
		merged.FileCount++
		return nil
	}); err != nil {
		return nil, err
	}

	merged.Sort()

	a.logger.Info("aggregated reference distributions",
		zap.String("dir", dir),
		zap.Int("files", merged.FileCount),
		zap.Int("loci", len(merged.Depths)))

	return merged, nil
}

// ParseFile extracts an observation for every record and called sample of
// one VCF. Samples without a genotype call are skipped; any other record
// error aborts the file.
func (a *Aggregator) ParseFile(path string) (*Distributions, error) {
	parser, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	d := NewDistributions()
	for {
		v, err := parser.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			break
		}

		for s := 0; s < v.NumSamples(); s++ {
			obs, err := locus.Extract(v, s)
			if errors.Is(err, locus.ErrNoCall) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", parser.LineNumber(), err)
			}
			d.Add(obs)
		}
	}
	return d, nil
}
