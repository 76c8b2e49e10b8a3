package tilezip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/flaneur2020/tilezip/tilezip/logger"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of paths a batch works on at once.
const DefaultConcurrency = 4

// ProgressCallback is called as tiles complete
// current: bytes fetched so far
// total: bytes of all resolved tiles
type ProgressCallback func(current int64, total int64)

// FetchJob asks for one tile path to be written to OutputPath.
type FetchJob struct {
	Path       string
	OutputPath string
}

// FetchFailure records a job that did not complete.
type FetchFailure struct {
	Path string
	Err  error
}

// BatchStats summarizes a batch.
type BatchStats struct {
	TotalFiles   int
	TotalBytes   int64
	FetchedFiles int
	FetchedBytes int64
	Failures     []FetchFailure
}

// BatchFetcher fetches many tile paths concurrently. Each path's own
// resolution stays sequential.
type BatchFetcher interface {
	Fetch(ctx context.Context, jobs []*FetchJob, progress ProgressCallback) (*BatchStats, error)
}

type batchFetcher struct {
	accessor    TileAccessor
	concurrency int
}

// NewBatchFetcher creates a BatchFetcher working on at most concurrency
// paths at a time.
func NewBatchFetcher(accessor TileAccessor, concurrency int) BatchFetcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &batchFetcher{
		accessor:    accessor,
		concurrency: concurrency,
	}
}

// OutputPathFor maps a tile path below dir, keeping its directory structure.
func OutputPathFor(dir, path string) string {
	return filepath.Join(dir, filepath.Clean("/"+filepath.FromSlash(path)))
}

// Fetch resolves every job first so the total size is known, then reads and
// writes the payloads. A failed job is recorded and does not stop the others;
// the returned error joins all failures.
func (b *batchFetcher) Fetch(ctx context.Context, jobs []*FetchJob, progress ProgressCallback) (*BatchStats, error) {
	stats := &BatchStats{}
	if len(jobs) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	fail := func(path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		stats.Failures = append(stats.Failures, FetchFailure{Path: path, Err: err})
		logger.Warn("fetch %s failed: %v", path, err)
	}

	refs := make([]*TileRef, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			ref, err := b.accessor.Resolve(gctx, job.Path)
			if err != nil {
				fail(job.Path, err)
				return nil
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	for _, ref := range refs {
		if ref == nil {
			continue
		}
		stats.TotalFiles++
		stats.TotalBytes += ref.Size()
	}
	if progress != nil {
		progress(0, stats.TotalBytes)
	}

	var current atomic.Int64
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, job := range jobs {
		ref := refs[i]
		if ref == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			tile, err := b.accessor.Read(gctx, ref)
			if err != nil {
				fail(job.Path, err)
				return nil
			}
			if err := writeTile(job.OutputPath, tile); err != nil {
				// Local write errors affect every remaining job.
				return err
			}

			mu.Lock()
			stats.FetchedFiles++
			stats.FetchedBytes += int64(len(tile.Data))
			mu.Unlock()

			n := current.Add(int64(len(tile.Data)))
			if progress != nil {
				progress(n, stats.TotalBytes)
			}
			logger.Debug("fetched %s (%d bytes, %s)", job.Path, len(tile.Data), tile.Digest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if len(stats.Failures) > 0 {
		errs := make([]error, 0, len(stats.Failures))
		for _, f := range stats.Failures {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
		return stats, errors.Join(errs...)
	}
	return stats, nil
}

func writeTile(outputPath string, tile *Tile) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(outputPath, tile.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}
