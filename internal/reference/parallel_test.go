package reference

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(t *testing.T, n int) <-chan FileItem {
	t.Helper()
	dir := t.TempDir()
	ch := make(chan FileItem, n)
	for i := 0; i < n; i++ {
		path := writeVCF(t, dir, fmt.Sprintf("ref%03d.vcf", i), fmt.Sprintf("chr1 L1 0/0 %d", i))
		ch <- FileItem{Seq: i, Path: path}
	}
	close(ch)
	return ch
}

func TestParallelParse_OrderPreservation(t *testing.T) {
	items := makeItems(t, 40)
	results := NewAggregator().ParallelParse(items, 8)

	var collected []int
	err := OrderedCollect(results, func(r FileResult) error {
		require.NoError(t, r.Err)
		collected = append(collected, r.Seq)
		assert.Equal(t, []float64{float64(r.Seq)}, r.Dist.Depths["L1"])
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 40)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelParse_MissingFile(t *testing.T) {
	ch := make(chan FileItem, 1)
	ch <- FileItem{Seq: 0, Path: filepath.Join(t.TempDir(), "absent.vcf")}
	close(ch)

	err := OrderedCollect(NewAggregator().ParallelParse(ch, 2), func(r FileResult) error {
		assert.Error(t, r.Err)
		assert.Nil(t, r.Dist)
		return nil
	})
	require.NoError(t, err)
}

func TestParallelParse_EmptyInput(t *testing.T) {
	ch := make(chan FileItem)
	close(ch)

	count := 0
	err := OrderedCollect(NewAggregator().ParallelParse(ch, 4), func(r FileResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	items := makeItems(t, 20)
	results := NewAggregator().ParallelParse(items, 4)

	count := 0
	err := OrderedCollect(results, func(r FileResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}
