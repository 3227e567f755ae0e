package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/noahgolmant/label-tiles/internal/tiles"
)

const (
	// DefaultWorkers is the default number of concurrent download workers
	DefaultWorkers = 10

	defaultTimeout = 60 * time.Second
)

// Progress is a snapshot of a running tile batch. One snapshot is emitted
// after each tile's outcome is known; Completed counts every finished tile
// regardless of outcome and reaches Total exactly once, at stream end.
type Progress struct {
	Total       int    `json:"total"`
	Completed   int    `json:"completed"`
	Failed      int    `json:"failed"`
	Skipped     int    `json:"skipped"`
	CurrentTile string `json:"currentTile,omitempty"`
	Error       string `json:"error,omitempty"`
}

// tileResult holds the outcome of a single tile download
type tileResult struct {
	tile    tiles.Tile
	skipped bool
	err     error
}

// Fetcher downloads map tiles from a template URL into a destination
// directory under bounded concurrency.
type Fetcher struct {
	urlTemplate  string
	destDir      string
	maxWorkers   int
	skipExisting bool
	client       *http.Client
	sem          *semaphore.Weighted
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient overrides the HTTP client (used by tests).
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithSkipExisting controls whether tiles already present on disk are
// skipped without a network call. Enabled by default.
func WithSkipExisting(skip bool) Option {
	return func(f *Fetcher) { f.skipExisting = skip }
}

// NewFetcher creates a tile fetcher. The URL template must contain {z}, {x}
// and {y} placeholders. maxWorkers bounds the number of in-flight requests.
func NewFetcher(urlTemplate, destDir string, maxWorkers int, opts ...Option) (*Fetcher, error) {
	if maxWorkers <= 0 {
		return nil, fmt.Errorf("max workers must be positive, got %d", maxWorkers)
	}
	for _, ph := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(urlTemplate, ph) {
			return nil, fmt.Errorf("url template missing %s placeholder: %s", ph, urlTemplate)
		}
	}
	if destDir == "" {
		return nil, fmt.Errorf("destination directory is required")
	}

	f := &Fetcher{
		urlTemplate:  urlTemplate,
		destDir:      destDir,
		maxWorkers:   maxWorkers,
		skipExisting: true,
		client:       &http.Client{Timeout: defaultTimeout},
		sem:          semaphore.NewWeighted(int64(maxWorkers)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// TileURL expands the template for a tile.
func (f *Fetcher) TileURL(t tiles.Tile) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(t.Z),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	)
	return r.Replace(f.urlTemplate)
}

// Fetch downloads a batch of tiles and returns a progress stream. The
// channel receives one snapshot per tile outcome in completion order and is
// closed once every tile has been accounted for. Per-tile failures are
// absorbed into the Failed counter and never abort the batch; only
// precondition failures are returned as an error, before any tile work.
//
// The channel is buffered for the whole batch, so an abandoned consumer
// never blocks the workers; cancel ctx to stop in-flight requests.
func (f *Fetcher) Fetch(ctx context.Context, batch []tiles.Tile) (<-chan Progress, error) {
	if err := os.MkdirAll(f.destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	total := len(batch)
	progress := make(chan Progress, total+1)
	results := make(chan tileResult, total)

	// Initial snapshot so consumers can render 0/N immediately
	progress <- Progress{Total: total}

	workerCount := f.maxWorkers
	if total < workerCount {
		workerCount = total
	}

	tileChan := make(chan tiles.Tile, total)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tileChan {
				results <- f.fetchOne(ctx, t)
			}
		}()
	}

	go func() {
		for _, t := range batch {
			tileChan <- t
		}
		close(tileChan)
	}()

	// Single collector serializes counter updates so each tile is counted
	// exactly once no matter how completions interleave.
	go func() {
		defer close(progress)

		var completed, failed, skipped int
		for i := 0; i < total; i++ {
			r := <-results
			completed++
			errStr := ""
			if r.err != nil {
				failed++
				errStr = r.err.Error()
			} else if r.skipped {
				skipped++
			}
			progress <- Progress{
				Total:       total,
				Completed:   completed,
				Failed:      failed,
				Skipped:     skipped,
				CurrentTile: r.tile.String(),
				Error:       errStr,
			}
		}
		wg.Wait()

		if failed > 0 {
			log.Printf("[Fetch] Batch finished with %d/%d failures", failed, total)
		}
	}()

	return progress, nil
}

// fetchOne downloads a single tile, honoring the skip-existing flag and the
// concurrency semaphore. Skipped tiles never touch the network or a permit.
func (f *Fetcher) fetchOne(ctx context.Context, t tiles.Tile) tileResult {
	path := filepath.Join(f.destDir, t.Filename())

	if f.skipExisting {
		if _, err := os.Stat(path); err == nil {
			return tileResult{tile: t, skipped: true}
		}
	}

	if err := f.sem.Acquire(ctx, 1); err != nil {
		return tileResult{tile: t, err: err}
	}
	defer f.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.TileURL(t), nil)
	if err != nil {
		return tileResult{tile: t, err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return tileResult{tile: t, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return tileResult{tile: t, err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return tileResult{tile: t, err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return tileResult{tile: t, err: err}
	}

	return tileResult{tile: t}
}
