// =============================================================================
// Loyalty Purchase Report - Shared Types
// =============================================================================
//
// This package contains the domain types shared by the loaders, the
// aggregator and the report builder. Keeping them here avoids import cycles
// between those packages:
//   - catalog     : builds Catalog and resolves Category values
//   - roster      : builds Customer slices
//   - aggregator  : produces PurchaseCounts
//   - report      : joins Customers and PurchaseCounts into ReportRows
//
// =============================================================================

package types

import (
	"slices"
	"sort"
)

// =============================================================================
// CUSTOMER TYPES
// =============================================================================

// Customer is one entry of the customer roster.
type Customer struct {
	// CustomerID is the opaque customer identifier (first roster column).
	CustomerID string

	// LoyaltyScore is the integer loyalty score (second roster column).
	LoyaltyScore int
}

// =============================================================================
// CATALOG TYPES
// =============================================================================

// Catalog is the raw product catalog: category -> description -> product id.
//
// Categories are kept in the order they first appear in the product file so
// that every pass over the catalog is deterministic.
type Catalog struct {
	order    []string
	products map[string]map[string]string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]map[string]string)}
}

// Add records a product under its category. A repeated description within
// the same category replaces the earlier product id.
func (c *Catalog) Add(category, description, productID string) {
	descriptions, ok := c.products[category]
	if !ok {
		descriptions = make(map[string]string)
		c.products[category] = descriptions
		c.order = append(c.order, category)
	}
	descriptions[description] = productID
}

// Categories returns the category names in first-appearance order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// ProductIDs returns the distinct product ids listed under a category, sorted.
func (c *Catalog) ProductIDs(category string) []string {
	descriptions := c.products[category]
	ids := make([]string, 0, len(descriptions))
	for _, id := range descriptions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return slices.Compact(ids)
}

// Len returns the number of catalog entries across all categories.
func (c *Catalog) Len() int {
	n := 0
	for _, descriptions := range c.products {
		n += len(descriptions)
	}
	return n
}

// Category is a resolved product category. The zero value is NoCategory.
type Category struct {
	Name  string
	Valid bool
}

// NoCategory is the sentinel for a product id that is absent from the catalog.
var NoCategory = Category{}

// KnownCategory wraps a category name found in the catalog.
func KnownCategory(name string) Category {
	return Category{Name: name, Valid: true}
}

// String returns the category name, or "<none>" for NoCategory.
func (c Category) String() string {
	if !c.Valid {
		return "<none>"
	}
	return c.Name
}

// Less orders categories with NoCategory first, then by name.
func (c Category) Less(other Category) bool {
	if c.Valid != other.Valid {
		return !c.Valid
	}
	return c.Name < other.Name
}

// =============================================================================
// PURCHASE COUNT TYPES
// =============================================================================

// PurchaseKey is the composite aggregation key.
type PurchaseKey struct {
	CustomerID string
	ProductID  string
	Category   Category
}

// PurchaseCounts maps each PurchaseKey to the number of basket items seen.
//
// Accumulation is a commutative, associative fold, so the result does not
// depend on the order records or partitions are visited in.
type PurchaseCounts map[PurchaseKey]int

// Add increments the count for key by n.
func (p PurchaseCounts) Add(key PurchaseKey, n int) {
	p[key] += n
}

// Merge adds every count of other into p.
func (p PurchaseCounts) Merge(other PurchaseCounts) {
	for key, n := range other {
		p[key] += n
	}
}

// Total returns the sum of all counts.
func (p PurchaseCounts) Total() int {
	total := 0
	for _, n := range p {
		total += n
	}
	return total
}

// Len returns the number of distinct keys.
func (p PurchaseCounts) Len() int {
	return len(p)
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// ReportRow is one row of the output report.
//
// ProductCategory is nil when the product id was not found in the catalog,
// which encodes as JSON null.
type ReportRow struct {
	CustomerID      string  `json:"customer_id"`
	LoyaltyScore    int     `json:"loyalty_score"`
	ProductID       string  `json:"product_id"`
	ProductCategory *string `json:"product_category"`
	PurchaseCount   int     `json:"purchase_count"`
}

// CategoryPointer converts a Category into the ReportRow representation.
func CategoryPointer(c Category) *string {
	if !c.Valid {
		return nil
	}
	name := c.Name
	return &name
}

// =============================================================================
// TABULAR INPUT
// =============================================================================

// Table is a parsed tabular input file (CSV or XLSX) with its header removed.
type Table struct {
	// Headers contains the header row cells, if the file had one.
	Headers []string

	// Rows contains the data rows as raw cell slices. Rows may be ragged;
	// column-count checks are left to the loaders.
	Rows [][]string

	// SourceFile is the path the table was read from.
	SourceFile string

	// FirstDataRow is the 1-based record number of Rows[0]. Blank lines
	// are not records and are not counted.
	FirstDataRow int
}

// RowNumber returns the 1-based record number of Rows[i].
func (t *Table) RowNumber(i int) int {
	return t.FirstDataRow + i
}
