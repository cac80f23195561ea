// Command menu-ingest imports dishes from gzip-compressed POS menu export
// files. Exports are noisy: the same dish appears in several exports and
// some rows are one-off artifacts. A dish is accepted only when its ID
// appears in two or more export files; membership is tracked with per-file
// bloom filters so the full sets never have to fit in memory.
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
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"comanda/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	numFiles      = 3
	progressEvery = 1_000_000
	fieldCount    = 4
)

// dishRow is one parsed export line: id|name|base_price|category.
type dishRow struct {
	id        string
	name      string
	basePrice decimal.Decimal
	category  string
}

// fileResult holds candidate rows found in a single file during pass 2.
type fileResult struct {
	rows  map[string]dishRow
	masks map[string]uint
}

const upsertDishSQL = `INSERT INTO dishes (id, name, base_price, category, option_group_ids)
	VALUES ($1, $2, $3, $4, '{}')
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		base_price = EXCLUDED.base_price,
		category = EXCLUDED.category,
		updated_at = now()`

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing menu-exportN.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("menu ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("menu ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files := make([]string, numFiles)
	for i := range numFiles {
		files[i] = filepath.Join(dataDir, fmt.Sprintf("menu-export%d.gz", i+1))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: build one bloom filter of dish IDs per file, concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", numFiles))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: collect rows whose ID appears in 2+ files.
	slog.Info("pass 2: finding confirmed dishes")

	dishes, err := findConfirmedDishes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find confirmed dishes")
	}

	slog.Info("confirmed dishes found", slog.Int("count", len(dishes)))

	if len(dishes) == 0 {
		slog.Info("no dishes to insert")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := writeDishes(ctx, pool, dishes); err != nil {
		return errors.Wrap(err, "write dishes to database")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
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

		if err := streamGzFile(ctx, path, func(line string) {
			row, ok := parseDishRow(line)
			if !ok {
				return
			}
			filter.AddString(row.id)
			count++
			if count%progressEvery == 0 {
				slog.Info("pass 1 progress",
					slog.Int("file", idx+1),
					slog.Uint64("rows", count),
				)
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_rows", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findConfirmedDishes re-streams each file and checks dish IDs against OTHER
// files' bloom filters. A dish is confirmed if it appears in 2 or more files;
// the row from the highest-numbered file wins since exports are ordered
// oldest to newest.
func findConfirmedDishes(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]dishRow, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all files; later files overwrite earlier rows.
	merged := make(map[string]uint)
	rows := make(map[string]dishRow)
	for _, r := range results {
		for id, mask := range r.masks {
			merged[id] |= mask
			rows[id] = r.rows[id]
		}
	}

	var confirmed []dishRow
	for id, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			confirmed = append(confirmed, rows[id])
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
		res := fileResult{
			rows:  make(map[string]dishRow),
			masks: make(map[string]uint),
		}
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(line string) {
			row, ok := parseDishRow(line)
			if !ok {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("rows", count),
				)
			}

			// Check whether this ID appears in any OTHER file's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(row.id) {
					res.rows[row.id] = row
					res.masks[row.id] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_rows", count),
			slog.Int("candidates", len(res.rows)),
		)

		results[idx] = res
		return nil
	}
}

// parseDishRow parses an export line of the form id|name|base_price|category.
// Malformed rows are skipped, not fatal: exports routinely contain header
// lines and partial writes.
func parseDishRow(line string) (dishRow, bool) {
	fields := strings.Split(line, "|")
	if len(fields) != fieldCount {
		return dishRow{}, false
	}

	id := strings.TrimSpace(fields[0])
	name := strings.TrimSpace(fields[1])
	if id == "" || name == "" {
		return dishRow{}, false
	}

	price, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil || price.IsNegative() {
		return dishRow{}, false
	}

	return dishRow{
		id:        id,
		name:      name,
		basePrice: price,
		category:  strings.TrimSpace(fields[3]),
	}, true
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
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
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeDishes upserts all confirmed dishes.
func writeDishes(ctx context.Context, pool *pgxpool.Pool, dishes []dishRow) error {
	slog.Info("writing dishes to database", slog.Int("count", len(dishes)))

	for i, d := range dishes {
		if _, err := pool.Exec(ctx, upsertDishSQL,
			d.id, d.name, d.basePrice, d.category,
		); err != nil {
			return errors.Wrapf(err, "upsert dish %s", d.id)
		}

		if (i+1)%100 == 0 || i+1 == len(dishes) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(dishes)))
		}
	}

	return nil
}
