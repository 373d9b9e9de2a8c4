// Package tabular picks the right parser for a roster or catalog file.
package tabular

import (
	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/csvparser"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/xlsxparser"
)

// Read parses path as a workbook when it has an Excel extension and as
// delimited text otherwise.
func Read(path string, settings config.CSVSettings) (*types.Table, error) {
	if xlsxparser.IsWorkbook(path) {
		return xlsxparser.Parse(path, settings)
	}
	return csvparser.Parse(path, settings)
}
