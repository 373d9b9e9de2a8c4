// =============================================================================
// Loyalty Purchase Report - XLSX Input Parser
// =============================================================================
//
// This module reads the customer roster or product catalog when it is
// delivered as an Excel workbook instead of a CSV export. The sheet is read
// with the same column layout as the CSV files:
//
//   Roster:  | customer_id | loyalty_score | ... |
//   Catalog: | product_id  | description   | category | ... |
//
// The first sheet is used unless CSVSettings.Sheet names another one.
// Header rows are skipped according to CSVSettings.HeaderRows.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
)

// IsWorkbook reports whether path names an Excel workbook by its extension.
func IsWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	default:
		return false
	}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a worksheet and returns its data rows.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - settings: The tabular settings; only Sheet and HeaderRows are used.
//
// RETURNS:
//   - The parsed table with header rows removed and fully empty rows dropped.
//   - An error if the workbook cannot be opened or the sheet does not exist.
func Parse(path string, settings config.CSVSettings) (*types.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := resolveSheet(f, settings.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %q: %w", sheetName, err)
	}

	headerRows := settings.HeaderRowCount()
	if len(rows) == 0 && headerRows > 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}
	if len(rows) < headerRows {
		return nil, fmt.Errorf("sheet %q has fewer rows than header_rows", sheetName)
	}

	table := &types.Table{
		SourceFile:   path,
		FirstDataRow: headerRows + 1,
	}
	if headerRows > 0 {
		table.Headers = trimCells(rows[headerRows-1])
	}

	for _, row := range rows[headerRows:] {
		// Empty rows do not count as records, matching the CSV reader.
		if isRowEmpty(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// resolveSheet returns the sheet to read.
func resolveSheet(f *excelize.File, requested string) (string, error) {
	if requested == "" {
		name := f.GetSheetName(0)
		if name == "" {
			return "", fmt.Errorf("workbook has no sheets")
		}
		return name, nil
	}

	if !slices.Contains(f.GetSheetList(), requested) {
		return "", fmt.Errorf("workbook has no sheet named %q", requested)
	}
	return requested, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.TrimSpace(cell)
	}
	return out
}
