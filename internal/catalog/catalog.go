// =============================================================================
// Loyalty Purchase Report - Catalog Index
// =============================================================================
//
// This module loads the product catalog and builds the forward index used to
// attribute basket items to a category.
//
// PRODUCT FILE LAYOUT:
//   | product_id | description | category | ... |
//
// The raw catalog is kept as category -> description -> product id. Basket
// attribution needs the opposite direction, so the index product id ->
// category is built once, in a single pass over the catalog, and every lookup
// afterwards is a map access.
//
// TIE-BREAK:
//   A product id listed under several categories resolves to the category
//   that appears first in the product file. Later occurrences are recorded
//   as conflicts but do not change the index.
//
// =============================================================================

package catalog

import (
	"fmt"
	"sort"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/errs"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/tabular"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
)

// MinColumns is the number of columns a product row needs to be used.
const MinColumns = 3

// LoadStats describes what Load did with the product file.
type LoadStats struct {
	// Rows is the number of data rows read.
	Rows int

	// SkippedRows is the number of rows with fewer than MinColumns columns.
	SkippedRows int
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the product file into a Catalog.
//
// PARAMETERS:
//   - path: The product file (CSV or XLSX).
//   - settings: The tabular parsing settings.
//
// RETURNS:
//   - The catalog.
//   - Statistics about skipped rows.
//   - An error if the file cannot be read. Short rows are not errors.
func Load(path string, settings config.CSVSettings) (*types.Catalog, LoadStats, error) {
	table, err := tabular.Read(path, settings)
	if err != nil {
		return nil, LoadStats{}, errs.Wrap(err, errs.CodeInvalidFormat, "failed to read product file").
			WithContext("path", path)
	}

	catalog, stats := FromTable(table)
	return catalog, stats, nil
}

// FromTable builds a Catalog from parsed product rows.
func FromTable(table *types.Table) (*types.Catalog, LoadStats) {
	catalog := types.NewCatalog()
	stats := LoadStats{Rows: len(table.Rows)}

	for _, row := range table.Rows {
		if len(row) < MinColumns {
			stats.SkippedRows++
			continue
		}
		productID, description, category := row[0], row[1], row[2]
		catalog.Add(category, description, productID)
	}

	return catalog, stats
}

// =============================================================================
// INDEX
// =============================================================================

// Index resolves product ids to categories.
type Index struct {
	categories map[string]string
	conflicts  map[string][]string
}

// NewIndex builds the product id -> category index in one pass over the
// catalog, visiting categories in first-appearance order.
func NewIndex(catalog *types.Catalog) *Index {
	idx := &Index{
		categories: make(map[string]string, catalog.Len()),
		conflicts:  make(map[string][]string),
	}

	for _, category := range catalog.Categories() {
		for _, productID := range catalog.ProductIDs(category) {
			first, seen := idx.categories[productID]
			if !seen {
				idx.categories[productID] = category
				continue
			}
			if first == category {
				// Same id under two descriptions of one category.
				continue
			}
			if len(idx.conflicts[productID]) == 0 {
				idx.conflicts[productID] = []string{first}
			}
			idx.conflicts[productID] = append(idx.conflicts[productID], category)
		}
	}

	return idx
}

// Lookup returns the category of productID, or types.NoCategory when the id
// is not in the catalog.
func (idx *Index) Lookup(productID string) types.Category {
	if name, ok := idx.categories[productID]; ok {
		return types.KnownCategory(name)
	}
	return types.NoCategory
}

// Len returns the number of distinct product ids in the index.
func (idx *Index) Len() int {
	return len(idx.categories)
}

// Conflict describes a product id listed under more than one category.
type Conflict struct {
	ProductID string

	// Categories lists every category the id appears under, in catalog
	// order. The first one is the category the index resolves to.
	Categories []string
}

// Conflicts returns the product ids found under more than one category,
// sorted by product id.
func (idx *Index) Conflicts() []Conflict {
	out := make([]Conflict, 0, len(idx.conflicts))
	for productID, categories := range idx.conflicts {
		out = append(out, Conflict{ProductID: productID, Categories: append([]string(nil), categories...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// String implements fmt.Stringer for log output.
func (c Conflict) String() string {
	return fmt.Sprintf("%s in %v", c.ProductID, c.Categories)
}
