// Command catalog-ingest cross-validates supplier availability feeds and
// syncs the catalog's active flags. Suppliers publish huge gzipped SKU dumps;
// a SKU counts as confirmed-in-stock only when it appears in at least two
// independent feeds, which filters out the stale single-feed entries.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/gleam-storefront/internal/store/postgres"
)

const (
	bloomCapacity = 50_000_000
	bloomFPR      = 0.001
	progressEvery = 5_000_000
	minSKULen     = 1
	maxSKULen     = 64
)

// fileResult holds candidate SKUs found in a single feed during pass 2.
type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir     string
		numFeeds    int
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing skufeedN.gz files")
	flag.IntVar(&numFeeds, "feeds", 3, "number of supplier feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if numFeeds < 2 {
		slog.Error("at least two feeds are required for cross-validation")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, numFeeds, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir string, numFeeds int, databaseURL string) error {
	files := make([]string, numFeeds)
	for i := range numFeeds {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("skufeed%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build one bloom filter per feed, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("feeds", numFeeds))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: find SKUs appearing in 2+ feeds.
	slog.Info("pass 2: cross-validating SKUs")

	confirmed, err := findConfirmedSKUs(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed SKUs")
	}

	slog.Info("confirmed SKUs found", slog.Int("count", len(confirmed)))

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := syncCatalog(ctx, postgres.NewCatalogRepository(pool), confirmed); err != nil {
		return errors.Wrap(err, "sync catalog")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per feed file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(sku string) {
			if len(sku) >= minSKULen && len(sku) <= maxSKULen {
				filter.AddString(sku)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("feed", idx+1),
						slog.Uint64("skus", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for feed %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_skus", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedSKUs re-streams each feed and checks SKUs against OTHER feeds'
// bloom filters. A SKU is confirmed if it appears in 2 or more feeds.
func findConfirmedSKUs(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge per-feed bitmasks.
	merged := make(map[string]uint)
	for _, r := range results {
		for sku, mask := range r.candidates {
			merged[sku] |= mask
		}
	}

	confirmed := make(map[string]struct{})
	for sku, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed[sku] = struct{}{}
		}
	}

	return confirmed, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(sku string) {
			if len(sku) < minSKULen || len(sku) > maxSKULen {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("feed", idx+1),
					slog.Uint64("skus", count),
				)
			}

			// Keep only SKUs that some OTHER feed also lists.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(sku) {
					candidates[sku] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan feed %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("feed", idx+1),
			slog.Uint64("total_skus", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed feed and calls fn with each trimmed
// line.
func streamGzFile(ctx context.Context, path string, fn func(sku string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// syncCatalog flips the active flag on every catalog product according to
// the confirmed SKU set. Cart and order snapshots keep their copies either
// way.
func syncCatalog(ctx context.Context, repo *postgres.CatalogRepository, confirmed map[string]struct{}) error {
	products, err := repo.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	var activated, deactivated int
	for i := range products {
		p := &products[i]
		_, ok := confirmed[p.ID]
		if ok == p.Active {
			continue
		}
		p.Active = ok
		if err := repo.Update(ctx, p); err != nil {
			return errors.Wrapf(err, "update product %s", p.ID)
		}
		if ok {
			activated++
		} else {
			deactivated++
		}
	}

	slog.Info("catalog synced",
		slog.Int("products", len(products)),
		slog.Int("activated", activated),
		slog.Int("deactivated", deactivated),
	)

	return nil
}
