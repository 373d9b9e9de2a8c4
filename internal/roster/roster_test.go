package roster

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/errs"
	"github.com/ginjaninja78/loyalty-purchase-report/internal/types"
)

func writeCustomers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCustomers(t, "customer_id,loyalty_score\nC1,5\nC2,9\n")

	customers, stats, err := Load(path, config.CSVSettings{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := []types.Customer{{CustomerID: "C1", LoyaltyScore: 5}, {CustomerID: "C2", LoyaltyScore: 9}}
	if !reflect.DeepEqual(customers, want) {
		t.Errorf("customers = %+v, want %+v", customers, want)
	}
	if stats.Rows != 2 || stats.SkippedRows != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestLoad_OneColumnRowIsSkipped(t *testing.T) {
	path := writeCustomers(t, "customer_id,loyalty_score\nC1,5\nC2\nC3, 7 \n")

	customers, stats, err := Load(path, config.CSVSettings{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(customers) != 2 || stats.SkippedRows != 1 {
		t.Fatalf("customers = %+v, stats = %+v", customers, stats)
	}
	if customers[1].LoyaltyScore != 7 {
		t.Errorf("padded score should parse, got %d", customers[1].LoyaltyScore)
	}
}

func TestLoad_NonIntegerScoreAborts(t *testing.T) {
	path := writeCustomers(t, "customer_id,loyalty_score\nC1,5\nC2,high\nC3,1\n")

	customers, _, err := Load(path, config.CSVSettings{})
	if err == nil {
		t.Fatal("expected error for non-integer loyalty_score")
	}
	if customers != nil {
		t.Errorf("expected no customers on failure, got %+v", customers)
	}

	var scoreErr *ScoreError
	if !errors.As(err, &scoreErr) {
		t.Fatalf("expected *ScoreError, got %T: %v", err, err)
	}
	if scoreErr.CustomerID != "C2" || scoreErr.Row != 3 || scoreErr.Value != "high" {
		t.Errorf("unexpected ScoreError: %+v", scoreErr)
	}
	if errs.CodeOf(err) != errs.CodeMalformedField {
		t.Errorf("CodeOf() = %s", errs.CodeOf(err))
	}
}

func TestLoad_DuplicatesKept(t *testing.T) {
	path := writeCustomers(t, "customer_id,loyalty_score\nC1,5\nC1,8\nC2,1\n")

	customers, _, err := Load(path, config.CSVSettings{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(customers) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(customers))
	}
	if dups := Duplicates(customers); !reflect.DeepEqual(dups, []string{"C1"}) {
		t.Errorf("Duplicates() = %v", dups)
	}

	idx := NewIndex(customers)
	if idx.Len() != 2 {
		t.Errorf("Len() = %d", idx.Len())
	}
	entries := idx.Get("C1")
	if len(entries) != 2 || entries[0].LoyaltyScore != 5 || entries[1].LoyaltyScore != 8 {
		t.Errorf("Get(C1) = %+v", entries)
	}
	if idx.Get("C9") != nil {
		t.Error("Get(C9) should be nil")
	}
}
