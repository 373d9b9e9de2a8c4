package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func content(text string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, text)
		return err
	}
}

func TestDiscoverPartitions(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "d=2018-12-02", "b.json"), "{}\n")
	mustWrite(t, filepath.Join(root, "d=2018-12-02", "a.json"), "{}\n")
	mustWrite(t, filepath.Join(root, "d=2018-12-01", "transactions.json"), "{}\n")
	mustWrite(t, filepath.Join(root, "d=2018-12-01", ".DS_Store"), "junk")
	mustWrite(t, filepath.Join(root, "stray.json"), "{}\n")
	if err := os.MkdirAll(filepath.Join(root, "d=2018-12-03"), 0755); err != nil {
		t.Fatal(err)
	}

	partitions, err := DiscoverPartitions(root)
	if err != nil {
		t.Fatalf("DiscoverPartitions() error: %v", err)
	}

	if len(partitions) != 3 {
		t.Fatalf("expected 3 partitions, got %+v", partitions)
	}
	if partitions[0].Name != "d=2018-12-01" || len(partitions[0].Files) != 1 {
		t.Errorf("partition 0 = %+v", partitions[0])
	}
	second := partitions[1].Files
	if len(second) != 2 || filepath.Base(second[0]) != "a.json" || filepath.Base(second[1]) != "b.json" {
		t.Errorf("partition 1 files = %v", second)
	}
	if len(partitions[2].Files) != 0 {
		t.Errorf("empty partition should have no files: %+v", partitions[2])
	}
}

func TestDiscoverPartitions_FollowsSymlinks(t *testing.T) {
	target := t.TempDir()
	mustWrite(t, filepath.Join(target, "day", "transactions.json"), "{}\n")
	mustWrite(t, filepath.Join(target, "extra.json"), "{}\n")

	root := t.TempDir()
	if err := os.Symlink(filepath.Join(target, "day"), filepath.Join(root, "d=2018-12-01")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	mustWrite(t, filepath.Join(root, "d=2018-12-02", "transactions.json"), "{}\n")
	if err := os.Symlink(filepath.Join(target, "extra.json"), filepath.Join(root, "d=2018-12-02", "linked.json")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(target, "missing"), filepath.Join(root, "dangling")); err != nil {
		t.Fatal(err)
	}

	partitions, err := DiscoverPartitions(root)
	if err != nil {
		t.Fatalf("DiscoverPartitions() error: %v", err)
	}
	if len(partitions) != 2 {
		t.Fatalf("expected 2 partitions, got %+v", partitions)
	}
	if partitions[0].Name != "d=2018-12-01" || len(partitions[0].Files) != 1 {
		t.Errorf("symlinked partition = %+v", partitions[0])
	}
	if len(partitions[1].Files) != 2 {
		t.Errorf("symlinked file not listed: %v", partitions[1].Files)
	}
}

func TestDiscoverPartitions_MissingDir(t *testing.T) {
	if _, err := DiscoverPartitions(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	err := AtomicWriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "[]")
		return err
	})
	if err != nil {
		t.Fatalf("AtomicWriteFile() error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[]" {
		t.Errorf("content = %q", data)
	}
}

func TestAtomicWriteFile_FailureKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	mustWrite(t, path, "old")

	boom := errors.New("boom")
	err := AtomicWriteFile(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Errorf("existing file changed to %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %v", entries)
	}
}

func TestCommitAll(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.json")
	mustWrite(t, first, "old")

	a, err := StageFile(first, content("new-a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := StageFile(second, content("new-b"))
	if err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(first); string(data) != "old" {
		t.Fatalf("staging changed the target: %q", data)
	}

	if err := CommitAll(a, b); err != nil {
		t.Fatalf("CommitAll() error: %v", err)
	}
	for path, want := range map[string]string{first: "new-a", second: "new-b"} {
		if data, _ := os.ReadFile(path); string(data) != want {
			t.Errorf("%s = %q, want %q", filepath.Base(path), data, want)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestCommitAll_NonRegularTargetChangesNothing(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	second := filepath.Join(dir, "b.xlsx")
	mustWrite(t, first, "old")
	if err := os.Mkdir(second, 0755); err != nil {
		t.Fatal(err)
	}

	write := content("new")
	a, err := StageFile(first, write)
	if err != nil {
		t.Fatal(err)
	}
	b, err := StageFile(second, write)
	if err != nil {
		t.Fatal(err)
	}

	if err := CommitAll(a, b); err == nil {
		t.Fatal("expected error")
	}
	if data, _ := os.ReadFile(first); string(data) != "old" {
		t.Errorf("a.json = %q, want old", data)
	}
	if !IsDir(second) {
		t.Error("directory target replaced")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestCommitAll_RenameFailureRestoresEarlierTargets(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.json")
	mustWrite(t, first, "old")

	write := content("new")
	a, err := StageFile(first, write)
	if err != nil {
		t.Fatal(err)
	}
	b, err := StageFile(filepath.Join(dir, "b.json"), write)
	if err != nil {
		t.Fatal(err)
	}
	b.Path = filepath.Join(dir, "missing", "b.json")

	if err := CommitAll(a, b); err == nil {
		t.Fatal("expected error")
	}
	if data, _ := os.ReadFile(first); string(data) != "old" {
		t.Errorf("a.json = %q, want old", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)
	summary := RunSummary{
		RunID:       "run-1",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Second),
		Customers:   2,
		BasketItems: 5,
		ReportRows:  3,
		OutputFiles: []string{"out/output.json"},
	}

	path, err := WriteSummaryLog(summary, dir)
	if err != nil {
		t.Fatalf("WriteSummaryLog() error: %v", err)
	}
	if filepath.Base(path) != "run_summary_20240115_143022.txt" {
		t.Errorf("path = %s", path)
	}

	data, _ := os.ReadFile(path)
	for _, want := range []string{"run-1", "Basket Items:       5", "out/output.json", "2s"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("summary missing %q:\n%s", want, data)
		}
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDirectories(dir, ""); err != nil {
		t.Fatalf("EnsureDirectories() error: %v", err)
	}
	if !IsDir(dir) {
		t.Error("directory not created")
	}
}
