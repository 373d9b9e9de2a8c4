// =============================================================================
// Loyalty Purchase Report - Report Builder
// =============================================================================
//
// This module joins the customer roster with the aggregated purchase counts
// and writes the result.
//
// JOIN:
//   Counts are grouped by customer_id once, then the roster is walked once.
//   It is an inner join: customers without purchases and purchases of
//   customers missing from the roster produce no rows. A customer id listed
//   twice in the roster yields its rows twice, once per loyalty score.
//
// ROW ORDER:
//   Roster order, then product_id, then category (absent category first).
//
// =============================================================================

package report

import (
	"sort"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/roster"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
)

type purchase struct {
	productID string
	category  types.Category
	count     int
}

// Build joins customers with counts into report rows.
//
// PARAMETERS:
//   - customers: The roster, in file order.
//   - counts: The aggregated purchase counts.
//
// RETURNS:
//   - The report rows. Never nil.
func Build(customers []types.Customer, counts types.PurchaseCounts) []types.ReportRow {
	byCustomer := make(map[string][]purchase)
	for key, n := range counts {
		byCustomer[key.CustomerID] = append(byCustomer[key.CustomerID], purchase{
			productID: key.ProductID,
			category:  key.Category,
			count:     n,
		})
	}
	for _, purchases := range byCustomer {
		sort.Slice(purchases, func(i, j int) bool {
			if purchases[i].productID != purchases[j].productID {
				return purchases[i].productID < purchases[j].productID
			}
			return purchases[i].category.Less(purchases[j].category)
		})
	}

	rows := make([]types.ReportRow, 0, len(counts))
	for _, customer := range customers {
		for _, p := range byCustomer[customer.CustomerID] {
			rows = append(rows, types.ReportRow{
				CustomerID:      customer.CustomerID,
				LoyaltyScore:    customer.LoyaltyScore,
				ProductID:       p.productID,
				ProductCategory: types.CategoryPointer(p.category),
				PurchaseCount:   p.count,
			})
		}
	}
	return rows
}

// Unmatched returns the number of basket items whose customer is not in the
// roster. The join drops them.
func Unmatched(counts types.PurchaseCounts, index *roster.Index) int {
	n := 0
	for key, count := range counts {
		if index.Get(key.CustomerID) == nil {
			n += count
		}
	}
	return n
}
