// =============================================================================
// Loyalty Purchase Report - Roster Loader
// =============================================================================
//
// This module loads the customer roster and indexes it for the report join.
//
// CUSTOMER FILE LAYOUT:
//   | customer_id | loyalty_score | ... |
//
// MALFORMED INPUT:
//   - A row with fewer than two columns is skipped.
//   - A loyalty score that is not an integer aborts the load. A bad score
//     would otherwise silently corrupt every report row of that customer.
//
// =============================================================================

package roster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/errs"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/tabular"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
)

// MinColumns is the number of columns a roster row needs to be used.
const MinColumns = 2

// LoadStats describes what Load did with the customer file.
type LoadStats struct {
	Rows        int
	SkippedRows int
}

// ScoreError reports a loyalty score that is not an integer.
type ScoreError struct {
	File       string
	Row        int
	CustomerID string
	Value      string
	Err        error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("%s: row %d: customer %q has non-integer loyalty_score %q", e.File, e.Row, e.CustomerID, e.Value)
}

func (e *ScoreError) Unwrap() error {
	return e.Err
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the customer file.
//
// PARAMETERS:
//   - path: The customer file (CSV or XLSX).
//   - settings: The tabular parsing settings.
//
// RETURNS:
//   - The customers in file order. Duplicate ids are kept as separate entries.
//   - Statistics about skipped rows.
//   - An error if the file cannot be read or a loyalty score is malformed.
func Load(path string, settings config.CSVSettings) ([]types.Customer, LoadStats, error) {
	table, err := tabular.Read(path, settings)
	if err != nil {
		return nil, LoadStats{}, errs.Wrap(err, errs.CodeInvalidFormat, "failed to read customer file").
			WithContext("path", path)
	}
	return FromTable(table)
}

// FromTable converts parsed roster rows into customers.
func FromTable(table *types.Table) ([]types.Customer, LoadStats, error) {
	stats := LoadStats{Rows: len(table.Rows)}
	customers := make([]types.Customer, 0, len(table.Rows))

	for i, row := range table.Rows {
		if len(row) < MinColumns {
			stats.SkippedRows++
			continue
		}

		score, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			scoreErr := &ScoreError{
				File:       table.SourceFile,
				Row:        table.RowNumber(i),
				CustomerID: row[0],
				Value:      row[1],
				Err:        err,
			}
			return nil, stats, errs.Wrap(scoreErr, errs.CodeMalformedField, "invalid customer record")
		}

		customers = append(customers, types.Customer{
			CustomerID:   row[0],
			LoyaltyScore: score,
		})
	}

	return customers, stats, nil
}

// =============================================================================
// INDEX
// =============================================================================

// Index maps a customer id to every roster entry carrying it.
type Index struct {
	byID map[string][]types.Customer
}

// NewIndex indexes customers by id, keeping roster order within an id.
func NewIndex(customers []types.Customer) *Index {
	idx := &Index{byID: make(map[string][]types.Customer, len(customers))}
	for _, c := range customers {
		idx.byID[c.CustomerID] = append(idx.byID[c.CustomerID], c)
	}
	return idx
}

// Get returns the roster entries for id, or nil.
func (idx *Index) Get(id string) []types.Customer {
	return idx.byID[id]
}

// Len returns the number of distinct customer ids.
func (idx *Index) Len() int {
	return len(idx.byID)
}

// Duplicates returns the ids that appear more than once in the roster.
func Duplicates(customers []types.Customer) []string {
	seen := make(map[string]int, len(customers))
	var dups []string
	for _, c := range customers {
		seen[c.CustomerID]++
		if seen[c.CustomerID] == 2 {
			dups = append(dups, c.CustomerID)
		}
	}
	return dups
}
