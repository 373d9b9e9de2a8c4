// =============================================================================
// Loyalty Purchase Report - Preflight Validation
// =============================================================================
//
// This module checks the run inputs before any aggregation happens:
//   - The customer and product files exist and can be parsed
//   - Their header rows have the expected columns
//   - Every loyalty score parses as an integer
//   - The transactions directory exists and contains day partitions
//   - The output location is usable
//
// ERROR HANDLING:
//   - Findings are collected, not returned one at a time
//   - "error" findings would make a run fail
//   - "warning" findings describe input that a run tolerates (short rows,
//     empty partitions, stray files, category conflicts)
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/catalog"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/roster"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/tabular"
	"github.com/ginjaninja78/loyalty-purchase-report/pkg/utils"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Expected header columns, in order.
var (
	CustomerColumns = []string{"customer_id", "loyalty_score"}
	ProductColumns  = []string{"product_id", "product_description", "product_category"}
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single preflight finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Input names the checked input: customers, products, transactions or
	// output.
	Input string

	// Path is the file or directory the finding is about.
	Path string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s (%s): %s", strings.ToUpper(e.Severity), e.Input, e.Path, e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of a preflight run.
type ValidationResult struct {
	// IsValid is true if there are no error findings.
	IsValid bool

	// Errors contains all findings, including warnings.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	Customers  int
	Products   int
	Partitions int
	Files      int
}

func (r *ValidationResult) add(severity, input, path, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{
		Severity: severity,
		Input:    input,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
	if severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// =============================================================================
// PREFLIGHT
// =============================================================================

// Preflight checks every input location named by cfg.
//
// PARAMETERS:
//   - cfg: The resolved configuration (file values merged with flags).
//
// RETURNS:
//   - The collected findings. Preflight never writes anything.
func Preflight(cfg *config.MainConfig) *ValidationResult {
	result := &ValidationResult{}

	if err := cfg.Validate(); err != nil {
		result.add(SeverityError, "config", "", "%v", err)
	}

	checkCustomers(result, cfg)
	checkProducts(result, cfg)
	checkTransactions(result, cfg.TransactionsLocation)
	checkOutput(result, cfg.OutputLocation)

	result.IsValid = result.ErrorCount == 0
	return result
}

func checkCustomers(result *ValidationResult, cfg *config.MainConfig) {
	const input = "customers"
	path := cfg.CustomersLocation

	table, err := tabular.Read(path, cfg.CSVSettings)
	if err != nil {
		result.add(SeverityError, input, path, "cannot read file: %v", err)
		return
	}
	checkHeaders(result, input, path, table.Headers, CustomerColumns)

	customers, stats, err := roster.FromTable(table)
	if err != nil {
		var scoreErr *roster.ScoreError
		if errors.As(err, &scoreErr) {
			result.add(SeverityError, input, path, "row %d: loyalty_score %q is not an integer", scoreErr.Row, scoreErr.Value)
		} else {
			result.add(SeverityError, input, path, "%v", err)
		}
		return
	}

	result.Customers = len(customers)
	if stats.SkippedRows > 0 {
		result.add(SeverityWarning, input, path, "%d row(s) with fewer than %d columns will be skipped", stats.SkippedRows, roster.MinColumns)
	}
	if dups := roster.Duplicates(customers); len(dups) > 0 {
		result.add(SeverityWarning, input, path, "duplicate customer ids produce repeated report rows: %s", strings.Join(dups, ", "))
	}
}

func checkProducts(result *ValidationResult, cfg *config.MainConfig) {
	const input = "products"
	path := cfg.ProductsLocation

	table, err := tabular.Read(path, cfg.CSVSettings)
	if err != nil {
		result.add(SeverityError, input, path, "cannot read file: %v", err)
		return
	}
	checkHeaders(result, input, path, table.Headers, ProductColumns)

	cat, stats := catalog.FromTable(table)
	index := catalog.NewIndex(cat)
	result.Products = index.Len()

	if stats.SkippedRows > 0 {
		result.add(SeverityWarning, input, path, "%d row(s) with fewer than %d columns will be skipped", stats.SkippedRows, catalog.MinColumns)
	}
	for _, conflict := range index.Conflicts() {
		result.add(SeverityWarning, input, path, "product %s is listed under %d categories, %q is used",
			conflict.ProductID, len(conflict.Categories), conflict.Categories[0])
	}
}

// checkHeaders compares the leading header cells with want. Extra trailing
// columns are allowed.
func checkHeaders(result *ValidationResult, input, path string, headers, want []string) {
	if len(headers) < len(want) {
		result.add(SeverityWarning, input, path, "header has %d column(s), expected at least %d (%s)",
			len(headers), len(want), strings.Join(want, ", "))
		return
	}
	for i, name := range want {
		if !strings.EqualFold(strings.TrimSpace(headers[i]), name) {
			result.add(SeverityWarning, input, path, "column %d is %q, expected %q", i+1, headers[i], name)
		}
	}
}

func checkTransactions(result *ValidationResult, dir string) {
	const input = "transactions"

	if !utils.IsDir(dir) {
		result.add(SeverityError, input, dir, "directory does not exist")
		return
	}

	partitions, err := utils.DiscoverPartitions(dir)
	if err != nil {
		result.add(SeverityError, input, dir, "%v", err)
		return
	}
	if len(partitions) == 0 {
		result.add(SeverityWarning, input, dir, "no day partitions found, the report will be empty")
	}

	result.Partitions = len(partitions)
	for _, p := range partitions {
		result.Files += len(p.Files)
		if len(p.Files) == 0 {
			result.add(SeverityWarning, input, filepath.Join(dir, p.Name), "partition has no files")
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), ".") && !utils.EntryIsDir(dir, entry) {
			result.add(SeverityWarning, input, filepath.Join(dir, entry.Name()), "file outside any partition is ignored")
		}
	}
}

func checkOutput(result *ValidationResult, dir string) {
	const input = "output"

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		result.add(SeverityWarning, input, dir, "directory does not exist and will be created")
	case err != nil:
		result.add(SeverityError, input, dir, "%v", err)
	case !info.IsDir():
		result.add(SeverityError, input, dir, "not a directory")
	}
}
