package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/aggregator"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/catalog"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/roster"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
)

func strPtr(s string) *string { return &s }

func known(customer, product, category string) types.PurchaseKey {
	return types.PurchaseKey{CustomerID: customer, ProductID: product, Category: types.KnownCategory(category)}
}

func TestBuild_SingleCustomerScenario(t *testing.T) {
	customers := []types.Customer{{CustomerID: "C1", LoyaltyScore: 5}, {CustomerID: "C2", LoyaltyScore: 9}}

	cat := types.NewCatalog()
	cat.Add("Snacks", "Chips", "P1")
	agg := aggregator.New(catalog.NewIndex(cat), aggregator.Options{})

	counts := make(types.PurchaseCounts)
	input := `{"customer_id": "C1", "basket": [{"product_id": "P1"}]}
{"customer_id": "C1", "basket": [{"product_id": "P1"}]}`
	if _, err := agg.ProcessReader(context.Background(), strings.NewReader(input), "t.json", counts); err != nil {
		t.Fatal(err)
	}

	rows := Build(customers, counts)
	want := []types.ReportRow{{
		CustomerID:      "C1",
		LoyaltyScore:    5,
		ProductID:       "P1",
		ProductCategory: strPtr("Snacks"),
		PurchaseCount:   2,
	}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %+v, want %+v", rows, want)
	}
}

func TestBuild_InnerJoinAndOrder(t *testing.T) {
	customers := []types.Customer{
		{CustomerID: "C2", LoyaltyScore: 1},
		{CustomerID: "C1", LoyaltyScore: 7},
		{CustomerID: "C4", LoyaltyScore: 3},
	}
	counts := types.PurchaseCounts{
		known("C1", "P2", "Drinks"): 1,
		known("C1", "P1", "Snacks"): 4,
		{CustomerID: "C1", ProductID: "P1", Category: types.NoCategory}: 2,
		known("C2", "P3", "Household"): 1,
		known("C9", "P1", "Snacks"):     8,
	}

	rows := Build(customers, counts)

	var got []string
	for _, r := range rows {
		cat := "null"
		if r.ProductCategory != nil {
			cat = *r.ProductCategory
		}
		got = append(got, r.CustomerID+"/"+r.ProductID+"/"+cat)
	}
	want := []string{"C2/P3/Household", "C1/P1/null", "C1/P1/Snacks", "C1/P2/Drinks"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestUnmatched(t *testing.T) {
	index := roster.NewIndex([]types.Customer{{CustomerID: "C1", LoyaltyScore: 5}})
	counts := types.PurchaseCounts{
		known("C1", "P1", "Snacks"): 2,
		known("C9", "P1", "Snacks"): 3,
		{CustomerID: "C8", ProductID: "P404"}: 1,
	}
	if got := Unmatched(counts, index); got != 4 {
		t.Errorf("Unmatched() = %d, want 4", got)
	}
}

func TestBuild_DuplicateCustomerRowsRepeat(t *testing.T) {
	customers := []types.Customer{{CustomerID: "C1", LoyaltyScore: 5}, {CustomerID: "C1", LoyaltyScore: 8}}
	counts := types.PurchaseCounts{known("C1", "P1", "Snacks"): 3}

	rows := Build(customers, counts)
	if len(rows) != 2 || rows[0].LoyaltyScore != 5 || rows[1].LoyaltyScore != 8 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestBuild_Empty(t *testing.T) {
	rows := Build(nil, nil)
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", rows)
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.json")
	rows := []types.ReportRow{
		{CustomerID: "C1", LoyaltyScore: 5, ProductID: "P1", ProductCategory: strPtr("Snacks"), PurchaseCount: 2},
		{CustomerID: "C1", LoyaltyScore: 5, ProductID: "P404", PurchaseCount: 1},
	}

	if err := WriteJSON(path, rows, false); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON %s: %v", data, err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded = %v", decoded)
	}
	if decoded[0]["product_category"] != "Snacks" || decoded[0]["purchase_count"] != float64(2) {
		t.Errorf("row 0 = %v", decoded[0])
	}
	if v, ok := decoded[1]["product_category"]; !ok || v != nil {
		t.Errorf("absent category should be null, got %v (present=%t)", v, ok)
	}
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.json")
	if err := WriteJSON(path, nil, true); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("content = %q, want []", data)
	}
}

func TestWriteJSON_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "output.json")
	if err := WriteJSON(path, nil, false); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.xlsx")
	rows := []types.ReportRow{
		{CustomerID: "C1", LoyaltyScore: 5, ProductID: "P1", ProductCategory: strPtr("Snacks"), PurchaseCount: 2},
		{CustomerID: "C2", LoyaltyScore: 1, ProductID: "P404", PurchaseCount: 1},
	}
	if err := WriteXLSX(path, rows); err != nil {
		t.Fatalf("WriteXLSX() error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %v", got)
	}
	if !reflect.DeepEqual(got[0], Columns) {
		t.Errorf("header = %v", got[0])
	}
	if !reflect.DeepEqual(got[1], []string{"C1", "5", "P1", "Snacks", "2"}) {
		t.Errorf("row 1 = %v", got[1])
	}
	if got[2][3] != "" {
		t.Errorf("absent category should be empty, got %q", got[2][3])
	}
}

func TestXLSXPath(t *testing.T) {
	if got := XLSXPath(filepath.Join("out", "output.json")); got != filepath.Join("out", "output.xlsx") {
		t.Errorf("XLSXPath() = %s", got)
	}
}
