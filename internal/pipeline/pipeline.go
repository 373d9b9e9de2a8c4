// =============================================================================
// Loyalty Purchase Report - Report Pipeline
// =============================================================================
//
// This module orchestrates one report run, from loading the inputs to
// writing the output files.
//
// PIPELINE:
//   1. Load the product catalog and build the product -> category index
//   2. Load the customer roster
//   3. Aggregate the transaction partitions into purchase counts
//   4. Join roster and counts into report rows
//   5. Stage the report files (JSON, optionally XLSX), then rename them
//      into place together
//   6. Write the run summary log, if enabled
//
// Nothing is written before step 5, so a failed or cancelled run leaves the
// output location as it was.
//
// =============================================================================

package pipeline

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/aggregator"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/catalog"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/errs"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/logging"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/report"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/roster"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
	"github.com/ginjaninja78/loyalty-purchase-report/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of a run.
type Result struct {
	// RunID identifies the run in log records and the summary file.
	RunID string

	// OutputFiles lists the report files written. Empty on a dry run.
	OutputFiles []string

	// SummaryFile is the run summary path, if one was written.
	SummaryFile string

	// Rows is the built report.
	Rows []types.ReportRow

	// Conflicts lists product ids found under more than one category.
	Conflicts []catalog.Conflict

	// DuplicateCustomers lists customer ids that appear more than once in
	// the roster.
	DuplicateCustomers []string

	// Summary contains the run statistics.
	Summary utils.RunSummary
}

// Options controls a Runner.
type Options struct {
	// DryRun builds the report without writing anything.
	DryRun bool

	// Logger receives stage records. Nil discards them.
	Logger *slog.Logger

	// OnDiscover and OnPartition are forwarded to the aggregator.
	OnDiscover  func(partitions int)
	OnPartition func(name string)
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes the report pipeline for one configuration.
type Runner struct {
	cfg    *config.MainConfig
	opts   Options
	runID  string
	logger *slog.Logger
}

// New creates a Runner with a fresh run id.
//
// PARAMETERS:
//   - cfg: The resolved configuration. It must have passed Validate.
//   - opts: Runtime options.
func New(cfg *config.MainConfig, opts Options) *Runner {
	runID := uuid.New().String()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		cfg:    cfg,
		opts:   opts,
		runID:  runID,
		logger: logging.WithRun(logger, runID),
	}
}

// RunID returns the id attached to this run's log records.
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes the pipeline.
//
// RETURNS:
//   - The run result.
//   - An error carrying an errs.Code if any stage fails.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: r.runID}
	summary := &result.Summary
	summary.RunID = r.runID
	summary.StartTime = start
	summary.DryRun = r.opts.DryRun

	r.logger.Info("run started",
		"customers", r.cfg.CustomersLocation,
		"products", r.cfg.ProductsLocation,
		"transactions", r.cfg.TransactionsLocation,
		"output", r.cfg.OutputLocation,
		"workers", r.cfg.Workers,
		"dry_run", r.opts.DryRun)

	// =========================================================================
	// STEP 1: CATALOG
	// =========================================================================

	stageStart := time.Now()
	cat, catStats, err := catalog.Load(r.cfg.ProductsLocation, r.cfg.CSVSettings)
	if err != nil {
		return nil, err
	}
	index := catalog.NewIndex(cat)
	result.Conflicts = index.Conflicts()

	summary.Products = index.Len()
	summary.SkippedProducts = catStats.SkippedRows
	summary.CategoryConflicts = len(result.Conflicts)

	if catStats.SkippedRows > 0 {
		r.logger.Debug("short product rows skipped", "rows", catStats.SkippedRows)
	}
	for _, c := range result.Conflicts {
		r.logger.Warn("product listed under several categories",
			"product_id", c.ProductID,
			"categories", c.Categories,
			"using", c.Categories[0])
	}
	r.logger.Info("catalog loaded",
		"entries", cat.Len(),
		"products", index.Len(),
		"duration", time.Since(stageStart))

	// =========================================================================
	// STEP 2: ROSTER
	// =========================================================================

	stageStart = time.Now()
	customers, rosterStats, err := roster.Load(r.cfg.CustomersLocation, r.cfg.CSVSettings)
	if err != nil {
		return nil, err
	}
	result.DuplicateCustomers = roster.Duplicates(customers)

	summary.Customers = len(customers)
	summary.SkippedCustomers = rosterStats.SkippedRows

	if rosterStats.SkippedRows > 0 {
		r.logger.Debug("short customer rows skipped", "rows", rosterStats.SkippedRows)
	}
	if len(result.DuplicateCustomers) > 0 {
		r.logger.Warn("duplicate customer ids in roster, their report rows are repeated",
			"customer_ids", strings.Join(result.DuplicateCustomers, ","))
	}
	r.logger.Info("roster loaded",
		"customers", len(customers),
		"duration", time.Since(stageStart))

	// =========================================================================
	// STEP 3: AGGREGATE
	// =========================================================================

	stageStart = time.Now()
	agg := aggregator.New(index, aggregator.Options{
		Workers:     r.cfg.Workers,
		ErrorPolicy: r.cfg.ErrorPolicy,
		OnDiscover:  r.opts.OnDiscover,
		OnPartition: r.opts.OnPartition,
		Logger:      r.logger,
	})
	counts, aggStats, err := agg.Run(ctx, r.cfg.TransactionsLocation)
	if err != nil {
		return nil, err
	}

	summary.Partitions = aggStats.Partitions
	summary.Files = aggStats.Files
	summary.Lines = aggStats.Lines
	summary.SkippedLines = aggStats.SkippedLines
	summary.BasketItems = aggStats.Items
	summary.UnknownItems = aggStats.UnknownItems

	if aggStats.UnknownItems > 0 {
		r.logger.Info("basket items without catalog category", "items", aggStats.UnknownItems)
	}
	r.logger.Info("transactions aggregated",
		"partitions", aggStats.Partitions,
		"files", aggStats.Files,
		"lines", aggStats.Lines,
		"items", aggStats.Items,
		"keys", counts.Len(),
		"duration", time.Since(stageStart))

	// =========================================================================
	// STEP 4: JOIN
	// =========================================================================

	result.Rows = report.Build(customers, counts)
	summary.ReportRows = len(result.Rows)
	summary.UnmatchedItems = report.Unmatched(counts, roster.NewIndex(customers))

	if summary.UnmatchedItems > 0 {
		r.logger.Info("basket items of customers missing from the roster", "items", summary.UnmatchedItems)
	}
	r.logger.Info("report built", "rows", len(result.Rows))

	// =========================================================================
	// STEP 5: WRITE
	// =========================================================================

	if r.opts.DryRun {
		summary.EndTime = time.Now()
		r.logger.Info("dry run, nothing written", "duration", summary.EndTime.Sub(start))
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, errs.CodeCanceled, "run canceled before writing")
	}

	if err := utils.EnsureDirectories(r.cfg.OutputLocation); err != nil {
		return nil, errs.Wrap(err, errs.CodeWriteFailed, "failed to prepare output location")
	}

	jsonPath := filepath.Join(r.cfg.OutputLocation, r.cfg.OutputFile)
	jsonFile, err := report.StageJSON(jsonPath, result.Rows, r.cfg.Report.Indent)
	if err != nil {
		return nil, err
	}
	staged := []*utils.StagedFile{jsonFile}

	if r.cfg.Report.XLSX {
		xlsxFile, err := report.StageXLSX(report.XLSXPath(jsonPath), result.Rows)
		if err != nil {
			utils.DiscardAll(staged...)
			return nil, err
		}
		staged = append(staged, xlsxFile)
	}

	if err := report.Commit(staged...); err != nil {
		return nil, err
	}
	for _, f := range staged {
		result.OutputFiles = append(result.OutputFiles, f.Path)
		r.logger.Info("report written", "path", f.Path)
	}
	summary.OutputFiles = result.OutputFiles

	// =========================================================================
	// STEP 6: SUMMARY
	// =========================================================================

	summary.EndTime = time.Now()
	if r.cfg.Report.SummaryLog {
		path, err := utils.WriteSummaryLog(*summary, r.cfg.OutputLocation)
		if err != nil {
			// The report itself is complete at this point.
			r.logger.Warn("failed to write run summary", "error", err)
		} else {
			result.SummaryFile = path
		}
	}

	r.logger.Info("run complete", "duration", summary.EndTime.Sub(start))
	return result, nil
}
