// Command catalog-ingest loads supplier catalog feeds into the products
// table. Feeds are gzip-compressed NDJSON files, one product record per line;
// files are streamed concurrently and records are upserted by SKU so the
// ingest can be re-run.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/saletrack/pos-checkout/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000
)

// record is one supplier feed line. Supplier feeds overlap, so the same SKU
// can appear in several files; the first occurrence wins within a run.
type record struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"minStock"`
}

const upsertBySKUSQL = `INSERT INTO products (id, sku, name, description, price, stock, min_stock)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (sku) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		stock = EXCLUDED.stock,
		min_stock = EXCLUDED.min_stock`

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing supplier feed files")
	flag.StringVar(&pattern, "pattern", "*.ndjson.gz", "feed file glob pattern")
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

	if err := run(ctx, dataDir, pattern, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no feed files matching %s in %s", pattern, dataDir)
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

	ing := &ingester{
		pool: pool,
		// Approximate SKU dedup across feeds. A false positive skips a line,
		// which the next nightly run picks up; upserts make replays safe.
		seen: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}

	slog.Info("ingesting feeds", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(ing.ingestFile(ctx, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("upserted", ing.upserted),
		slog.Uint64("skipped_duplicates", ing.skipped),
	)
	return nil
}

type ingester struct {
	pool *pgxpool.Pool

	mu       sync.Mutex
	seen     *bloom.BloomFilter
	upserted uint64
	skipped  uint64
}

// firstSeen marks the SKU and reports whether this is its first occurrence
// in the run.
func (ing *ingester) firstSeen(sku string) bool {
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.seen.TestAndAddString(sku) {
		ing.skipped++
		return false
	}
	return true
}

func (ing *ingester) ingestFile(ctx context.Context, path string) func() error {
	return func() error {
		var count uint64

		err := streamGzLines(ctx, path, func(line []byte) error {
			var rec record
			if err := json.Unmarshal(line, &rec); err != nil {
				return errors.Wrap(err, "parse feed line")
			}
			if rec.SKU == "" || rec.Name == "" {
				return errors.Errorf("feed line missing sku or name: %s", line)
			}
			if !ing.firstSeen(rec.SKU) {
				return nil
			}

			if _, err := ing.pool.Exec(ctx, upsertBySKUSQL,
				uuid.New().String(), rec.SKU, rec.Name, rec.Description, rec.Price, rec.Stock, rec.MinStock,
			); err != nil {
				return errors.Wrapf(err, "upsert sku %s", rec.SKU)
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("ingest progress", slog.String("file", path), slog.Uint64("records", count))
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", path)
		}

		ing.mu.Lock()
		ing.upserted += count
		ing.mu.Unlock()

		slog.Info("file complete", slog.String("file", path), slog.Uint64("records", count))
		return nil
	}
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line []byte) error) error {
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
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
