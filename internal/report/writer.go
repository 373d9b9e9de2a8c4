package report

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/errs"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
	"github.com/ginjaninja78/loyalty-purchase-report/pkg/utils"
)

// SheetName is the worksheet the XLSX export writes to.
const SheetName = "report"

// Columns are the report fields in output order.
var Columns = []string{"customer_id", "loyalty_score", "product_id", "product_category", "purchase_count"}

// =============================================================================
// JSON OUTPUT
// =============================================================================

// WriteJSON writes rows as a JSON array to path.
//
// PARAMETERS:
//   - path: The output file. Its directory must exist.
//   - rows: The report rows. An empty report is written as [].
//   - indent: Pretty-print with two-space indentation.
//
// RETURNS:
//   - An error if the file cannot be written. A previous file at path is
//     left untouched in that case.
func WriteJSON(path string, rows []types.ReportRow, indent bool) error {
	staged, err := StageJSON(path, rows, indent)
	if err != nil {
		return err
	}
	return Commit(staged)
}

// StageJSON writes the JSON report to a temp file next to path. The report
// appears at path only once the staged file is committed.
func StageJSON(path string, rows []types.ReportRow, indent bool) (*utils.StagedFile, error) {
	staged, err := utils.StageFile(path, func(w io.Writer) error {
		return EncodeJSON(w, rows, indent)
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeWriteFailed, "failed to write JSON report").WithContext("path", path)
	}
	return staged, nil
}

// EncodeJSON encodes rows to w.
func EncodeJSON(w io.Writer, rows []types.ReportRow, indent bool) error {
	if rows == nil {
		rows = []types.ReportRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rows)
}

// =============================================================================
// XLSX OUTPUT
// =============================================================================

// WriteXLSX writes rows to a workbook at path: one header row followed by
// one row per report row. An absent category is an empty cell.
func WriteXLSX(path string, rows []types.ReportRow) error {
	staged, err := StageXLSX(path, rows)
	if err != nil {
		return err
	}
	return Commit(staged)
}

// StageXLSX builds the workbook and writes it to a temp file next to path.
func StageXLSX(path string, rows []types.ReportRow) (*utils.StagedFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := fillSheet(f, rows); err != nil {
		return nil, errs.Wrap(err, errs.CodeWriteFailed, "failed to build XLSX report").WithContext("path", path)
	}

	staged, err := utils.StageFile(path, func(w io.Writer) error {
		return f.Write(w)
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeWriteFailed, "failed to write XLSX report").WithContext("path", path)
	}
	return staged, nil
}

// Commit moves staged report files into place together. On error none of
// the targets change.
func Commit(files ...*utils.StagedFile) error {
	if err := utils.CommitAll(files...); err != nil {
		return errs.Wrap(err, errs.CodeWriteFailed, "failed to publish report")
	}
	return nil
}

func fillSheet(f *excelize.File, rows []types.ReportRow) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range rows {
		category := ""
		if row.ProductCategory != nil {
			category = *row.ProductCategory
		}
		values := []interface{}{row.CustomerID, row.LoyaltyScore, row.ProductID, category, row.PurchaseCount}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// XLSXPath derives the workbook path from the JSON report path.
func XLSXPath(jsonPath string) string {
	return strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".xlsx"
}
