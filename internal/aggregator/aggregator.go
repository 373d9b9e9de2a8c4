// =============================================================================
// Loyalty Purchase Report - Transaction Aggregator
// =============================================================================
//
// This module folds the day-partitioned transaction files into purchase
// counts keyed by (customer_id, product_id, category).
//
// TRANSACTION LINE FORMAT (one JSON object per line):
//   {"customer_id": "C1", "basket": [{"product_id": "P1", "price": 1.2}], ...}
//
//   Fields other than customer_id, basket and basket[].product_id are ignored.
//
// PROCESSING FLOW:
//   1. Discover partitions (subdirectories of the transactions directory)
//   2. Fold every partition into its own PurchaseCounts
//   3. Merge partition results by key-wise summation
//
// Because the fold is a sum, the merged result does not depend on the order
// partitions, files or lines are visited in, nor on the worker count.
//
// =============================================================================

package aggregator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/errs"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
	"github.com/ginjaninja78/loyalty-purchase-report/pkg/utils"
)

const (
	initialLineBuffer = 1024 * 1024
	maxLineSize       = 32 * 1024 * 1024
)

// Categorizer resolves a product id to its category.
type Categorizer interface {
	Lookup(productID string) types.Category
}

// Options configures an Aggregator.
type Options struct {
	// Workers is the number of partitions folded concurrently. Values
	// below 1 mean sequential processing.
	Workers int

	// ErrorPolicy is config.ErrorPolicyStrict (default) or
	// config.ErrorPolicySkip.
	ErrorPolicy string

	// OnDiscover, if set, is called once with the number of partitions
	// before any of them is folded.
	OnDiscover func(partitions int)

	// OnPartition, if set, is called after each partition has been folded.
	// Calls are serialized.
	OnPartition func(name string)

	// Logger receives per-line warnings and per-partition debug output.
	Logger *slog.Logger
}

// Stats describes one aggregation run.
type Stats struct {
	Partitions   int
	Files        int
	Lines        int
	SkippedLines int
	Items        int
	UnknownItems int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Partitions += other.Partitions
	s.Files += other.Files
	s.Lines += other.Lines
	s.SkippedLines += other.SkippedLines
	s.Items += other.Items
	s.UnknownItems += other.UnknownItems
}

// RecordError reports a transaction line that could not be used.
type RecordError struct {
	File string
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

var (
	errMissingCustomerID = errors.New("record has no customer_id")
	errMissingBasket     = errors.New("record has no basket")
	errMissingProductID  = errors.New("basket item has no product_id")
)

// transaction mirrors a transaction line. Pointer fields distinguish a
// missing key from an empty value.
type transaction struct {
	CustomerID *string       `json:"customer_id"`
	Basket     *[]basketItem `json:"basket"`
}

type basketItem struct {
	ProductID *string `json:"product_id"`
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator folds transaction partitions into PurchaseCounts.
type Aggregator struct {
	index Categorizer
	opts  Options
	log   *slog.Logger
}

// New creates an Aggregator that resolves categories through index.
func New(index Categorizer, opts Options) *Aggregator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ErrorPolicy == "" {
		opts.ErrorPolicy = config.ErrorPolicyStrict
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{index: index, opts: opts, log: logger}
}

// Run aggregates every partition under dir.
//
// PARAMETERS:
//   - ctx: Cancels the run between lines.
//   - dir: The transactions directory.
//
// RETURNS:
//   - The merged purchase counts.
//   - Run statistics.
//   - An error if the directory cannot be read, a file cannot be read, a
//     record is malformed under the strict policy, or ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, dir string) (types.PurchaseCounts, Stats, error) {
	partitions, err := utils.DiscoverPartitions(dir)
	if err != nil {
		return nil, Stats{}, errs.Wrap(err, errs.CodeInputNotFound, "failed to list transaction partitions").
			WithContext("path", dir)
	}

	if a.opts.OnDiscover != nil {
		a.opts.OnDiscover(len(partitions))
	}

	var (
		mu     sync.Mutex
		counts = make(types.PurchaseCounts)
		stats  Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	for _, partition := range partitions {
		partition := partition
		g.Go(func() error {
			local := make(types.PurchaseCounts)
			partStats, err := a.processPartition(gctx, partition, local)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			counts.Merge(local)
			stats.Add(partStats)
			if a.opts.OnPartition != nil {
				a.opts.OnPartition(partition.Name)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, stats, errs.Wrap(ctx.Err(), errs.CodeCanceled, "aggregation canceled")
		}
		return nil, stats, err
	}

	return counts, stats, nil
}

// processPartition folds every file of one partition into counts.
func (a *Aggregator) processPartition(ctx context.Context, partition utils.Partition, counts types.PurchaseCounts) (Stats, error) {
	stats := Stats{Partitions: 1}

	for _, path := range partition.Files {
		fileStats, err := a.processFile(ctx, path, counts)
		if err != nil {
			return stats, err
		}
		stats.Add(fileStats)
	}

	a.log.Debug("partition folded",
		"partition", partition.Name,
		"files", stats.Files,
		"lines", stats.Lines,
		"items", stats.Items)
	return stats, nil
}

func (a *Aggregator) processFile(ctx context.Context, path string, counts types.PurchaseCounts) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, errs.Wrap(err, errs.CodeInputNotFound, "failed to open transaction file").
			WithContext("path", path)
	}
	defer file.Close()

	stats, err := a.ProcessReader(ctx, file, path, counts)
	stats.Files = 1
	return stats, err
}

// ProcessReader folds one newline-delimited JSON stream into counts.
//
// PARAMETERS:
//   - ctx: Checked before every line.
//   - r: The stream.
//   - source: Name used in errors and log records.
//   - counts: Accumulator the stream's basket items are added to.
//
// RETURNS:
//   - Statistics for this stream.
//   - An error for a malformed record under the strict policy, a read
//     failure, or cancellation. Counts added before the error stay in counts.
func (a *Aggregator) ProcessReader(ctx context.Context, r io.Reader, source string, counts types.PurchaseCounts) (Stats, error) {
	var stats Stats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialLineBuffer), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		lineNum++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		stats.Lines++

		items, unknown, err := a.foldLine(line, counts)
		if err != nil {
			recErr := &RecordError{File: source, Line: lineNum, Err: err}
			if a.opts.ErrorPolicy != config.ErrorPolicySkip {
				return stats, errs.Wrap(recErr, errs.CodeMalformedRecord, "malformed transaction record")
			}
			a.log.Warn("skipping malformed transaction", "file", source, "line", lineNum, "error", err)
			stats.SkippedLines++
			continue
		}
		stats.Items += items
		stats.UnknownItems += unknown
	}

	if err := scanner.Err(); err != nil {
		return stats, errs.Wrap(err, errs.CodeInvalidFormat, "failed to read transaction file").
			WithContext("path", source)
	}
	return stats, nil
}

// foldLine validates a whole line before touching counts, so a rejected
// line contributes nothing.
func (a *Aggregator) foldLine(line []byte, counts types.PurchaseCounts) (items, unknown int, err error) {
	var tx transaction
	if err := json.Unmarshal(line, &tx); err != nil {
		return 0, 0, err
	}
	if tx.CustomerID == nil {
		return 0, 0, errMissingCustomerID
	}
	if tx.Basket == nil {
		return 0, 0, errMissingBasket
	}
	for i, item := range *tx.Basket {
		if item.ProductID == nil {
			return 0, 0, fmt.Errorf("basket[%d]: %w", i, errMissingProductID)
		}
	}

	for _, item := range *tx.Basket {
		category := a.index.Lookup(*item.ProductID)
		if !category.Valid {
			unknown++
		}
		counts.Add(types.PurchaseKey{
			CustomerID: *tx.CustomerID,
			ProductID:  *item.ProductID,
			Category:   category,
		}, 1)
		items++
	}
	return items, unknown, nil
}
