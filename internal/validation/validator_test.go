package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func setup(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.CustomersLocation = filepath.Join(root, "customers.csv")
	cfg.ProductsLocation = filepath.Join(root, "products.csv")
	cfg.TransactionsLocation = filepath.Join(root, "transactions")
	cfg.OutputLocation = filepath.Join(root, "out")

	writeFile(t, cfg.CustomersLocation, "customer_id,loyalty_score\nC1,5\nC2,9\n")
	writeFile(t, cfg.ProductsLocation, "product_id,product_description,product_category\nP1,Chips,Snacks\n")
	writeFile(t, filepath.Join(cfg.TransactionsLocation, "d=2018-12-01", "transactions.json"),
		`{"customer_id": "C1", "basket": [{"product_id": "P1"}]}`+"\n")
	return cfg
}

func describe(result *ValidationResult) string {
	var lines []string
	for _, f := range result.Errors {
		lines = append(lines, f.Error())
	}
	return strings.Join(lines, "\n")
}

func hasFinding(result *ValidationResult, severity, input, fragment string) bool {
	for _, f := range result.Errors {
		if f.Severity == severity && f.Input == input && strings.Contains(f.Message, fragment) {
			return true
		}
	}
	return false
}

func TestPreflight_Clean(t *testing.T) {
	cfg := setup(t)
	if err := os.MkdirAll(cfg.OutputLocation, 0755); err != nil {
		t.Fatal(err)
	}

	result := Preflight(cfg)
	if !result.IsValid || len(result.Errors) != 0 {
		t.Fatalf("expected no findings:\n%s", describe(result))
	}
	if result.Customers != 2 || result.Products != 1 || result.Partitions != 1 || result.Files != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestPreflight_BadScoreIsError(t *testing.T) {
	cfg := setup(t)
	writeFile(t, cfg.CustomersLocation, "customer_id,loyalty_score\nC1,five\n")

	result := Preflight(cfg)
	if result.IsValid {
		t.Fatal("expected invalid result")
	}
	if !hasFinding(result, SeverityError, "customers", `"five"`) {
		t.Errorf("missing score finding:\n%s", describe(result))
	}
}

func TestPreflight_Warnings(t *testing.T) {
	cfg := setup(t)
	writeFile(t, cfg.CustomersLocation, "id,score\nC1,5\nC1,6\nC3\n")
	writeFile(t, cfg.ProductsLocation, "product_id,product_description,product_category\nP1,Chips,Snacks\nP1,Chips,Deli\n")
	writeFile(t, filepath.Join(cfg.TransactionsLocation, "stray.json"), "{}\n")
	if err := os.MkdirAll(filepath.Join(cfg.TransactionsLocation, "d=2018-12-02"), 0755); err != nil {
		t.Fatal(err)
	}

	result := Preflight(cfg)
	if !result.IsValid {
		t.Fatalf("warnings must not invalidate:\n%s", describe(result))
	}

	for _, want := range []struct{ input, fragment string }{
		{"customers", `expected "customer_id"`},
		{"customers", "will be skipped"},
		{"customers", "duplicate customer ids"},
		{"products", "listed under 2 categories"},
		{"transactions", "outside any partition"},
		{"transactions", "no files"},
		{"output", "will be created"},
	} {
		if !hasFinding(result, SeverityWarning, want.input, want.fragment) {
			t.Errorf("missing %s warning %q:\n%s", want.input, want.fragment, describe(result))
		}
	}
}

func TestPreflight_MissingInputs(t *testing.T) {
	cfg := config.Default()
	root := t.TempDir()
	cfg.CustomersLocation = filepath.Join(root, "none.csv")
	cfg.ProductsLocation = filepath.Join(root, "none.csv")
	cfg.TransactionsLocation = filepath.Join(root, "none")
	cfg.OutputLocation = root

	result := Preflight(cfg)
	if result.ErrorCount != 3 {
		t.Errorf("ErrorCount = %d:\n%s", result.ErrorCount, describe(result))
	}
}

func TestPreflight_OutputIsFile(t *testing.T) {
	cfg := setup(t)
	writeFile(t, cfg.OutputLocation, "not a dir")

	result := Preflight(cfg)
	if !hasFinding(result, SeverityError, "output", "not a directory") {
		t.Errorf("missing output finding:\n%s", describe(result))
	}
}

func TestPreflight_SymlinkedPartition(t *testing.T) {
	cfg := setup(t)
	store := t.TempDir()
	writeFile(t, filepath.Join(store, "day", "transactions.json"), `{"customer_id": "C1", "basket": []}`+"\n")
	if err := os.Symlink(filepath.Join(store, "day"), filepath.Join(cfg.TransactionsLocation, "d=2018-12-02")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	result := Preflight(cfg)
	if result.Partitions != 2 || result.Files != 2 {
		t.Errorf("partitions = %d, files = %d, want 2/2", result.Partitions, result.Files)
	}
	if hasFinding(result, SeverityWarning, "transactions", "outside any partition") {
		t.Errorf("symlinked partition reported as stray file:\n%s", describe(result))
	}
}
