// =============================================================================
// Loyalty Purchase Report - CSV Parser Module
// =============================================================================
//
// This module reads the tabular inputs (customer roster and product catalog)
// when they are delivered as delimited text. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Zero, one or several header rows
//   - Ragged rows (rows are returned as-is; the loaders decide what a
//     malformed row is)
//
// Rows are never padded or trimmed here: a short row must stay short so the
// loaders can apply their minimum column counts.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns its data rows.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - The parsed table with header rows removed.
//   - An error if the file cannot be opened, is empty, or is not valid CSV.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	parser, err := NewStreamingParser(filePath, settings)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	table := &types.Table{
		Headers:      parser.Headers(),
		SourceFile:   filePath,
		FirstDataRow: parser.RowNumber() + 1,
	}

	for parser.Next() {
		table.Rows = append(table.Rows, parser.Record())
	}
	if err := parser.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Ragged rows are reported to the loaders, not rejected here.
	reader.FieldsPerRecord = -1

	reader.LazyQuotes = true
}

// mergeHeaders merges several header rows into one set of column names.
//
//   Row 1: "Customer", "Loyalty"
//   Row 2: "Id",       "Score"
//   Result: "Customer Id", "Loyalty Score"
func mergeHeaders(headerRows [][]string) []string {
	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return headers
}

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads a CSV file one record at a time.
//
// USAGE:
//   parser, err := NewStreamingParser(filePath, settings)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       record := parser.Record()
//   }
//
//   if err := parser.Err(); err != nil {
//       return err
//   }
type StreamingParser struct {
	file      *os.File
	reader    *csv.Reader
	headers   []string
	current   []string
	rowNumber int
	err       error
	settings  config.CSVSettings
}

// NewStreamingParser opens a CSV file and consumes its header rows.
//
// An empty file is an error when header rows are expected: a roster or
// catalog without even a header is not a valid input.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := newParser(bufio.NewReader(file), settings)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	parser.file = file

	return parser, nil
}

func newParser(r io.Reader, settings config.CSVSettings) (*StreamingParser, error) {
	reader := csv.NewReader(r)
	configureReader(reader, settings)

	parser := &StreamingParser{
		reader:   reader,
		settings: settings,
	}

	if err := parser.readHeaders(); err != nil {
		return nil, err
	}

	return parser, nil
}

// readHeaders reads and merges the header rows.
func (p *StreamingParser) readHeaders() error {
	count := p.settings.HeaderRowCount()
	headerRows := make([][]string, 0, count)

	for i := 0; i < count; i++ {
		row, err := p.reader.Read()
		if err == io.EOF {
			if i == 0 {
				return fmt.Errorf("CSV file is empty")
			}
			return fmt.Errorf("unexpected end of file while reading headers")
		}
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", i+1, err)
		}
		headerRows = append(headerRows, row)
		p.rowNumber++
	}

	if len(headerRows) > 0 {
		p.headers = mergeHeaders(headerRows)
	}
	return nil
}

// Next advances to the next record. Returns false when there are no more
// records or an error occurred.
func (p *StreamingParser) Next() bool {
	if p.err != nil {
		return false
	}

	row, err := p.reader.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
		return false
	}

	p.rowNumber++
	p.current = row
	return true
}

// Record returns the current record.
func (p *StreamingParser) Record() []string {
	return p.current
}

// Headers returns the merged header row, or nil when header_rows is 0.
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// RowNumber returns the number of records consumed so far.
func (p *StreamingParser) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file, if any.
func (p *StreamingParser) Close() error {
	if p.file == nil {
		return nil
	}
	return p.file.Close()
}
