// =============================================================================
// Loyalty Purchase Report - File Manager Utility
// =============================================================================
//
// This module provides the file system helpers used around a report run:
//   - Directory setup for the output location
//   - Day-partition discovery under the transactions directory
//   - Atomic file writes (temp file, fsync, rename)
//   - Run summary log generation
//
// PARTITION LAYOUT:
//   transactions/
//     d=2018-12-01/        <- one partition per subdirectory
//       transactions.json  <- any number of newline-delimited JSON files
//     d=2018-12-02/
//       ...
//
//   Regular files placed directly in the transactions directory are not part
//   of any partition and are ignored. Hidden files (leading '.') are ignored
//   everywhere. Symlinks are followed: a link to a directory is a partition.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all listed directories if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// PARTITION DISCOVERY
// =============================================================================

// Partition is one day-subdirectory of the transactions directory.
type Partition struct {
	// Name is the subdirectory name, e.g. "d=2018-12-01".
	Name string

	// Files lists the partition's transaction files, sorted by name.
	Files []string
}

// DiscoverPartitions lists the day partitions under dir.
//
// PARAMETERS:
//   - dir: The transactions directory.
//
// RETURNS:
//   - The partitions sorted by name. Empty partitions are included so the
//     caller can report them.
//   - An error if dir or one of its subdirectories cannot be read.
//
// NOTE: Nested directories inside a partition are not descended into.
func DiscoverPartitions(dir string) ([]Partition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions directory: %w", err)
	}

	var partitions []Partition
	for _, entry := range entries {
		if isHidden(entry.Name()) || !EntryIsDir(dir, entry) {
			continue
		}

		partitionDir := filepath.Join(dir, entry.Name())
		files, err := listFiles(partitionDir)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, Partition{Name: entry.Name(), Files: files})
	}

	sort.Slice(partitions, func(i, j int) bool { return partitions[i].Name < partitions[j].Name })
	return partitions, nil
}

// listFiles returns the regular, non-hidden files of dir, sorted.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if isHidden(entry.Name()) || EntryIsDir(dir, entry) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// EntryIsDir reports whether entry, read from dir, is a directory. Symlinks
// are resolved; a dangling link is not a directory.
func EntryIsDir(dir string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir()
	}
	return IsDir(filepath.Join(dir, entry.Name()))
}

// =============================================================================
// ATOMIC WRITES
// =============================================================================

// AtomicWriteFile writes a file through a temp file in the destination
// directory, then renames it into place. A failed write leaves any existing
// file at path untouched.
//
// PARAMETERS:
//   - path: The final file path.
//   - write: Callback that writes the file content.
//
// RETURNS:
//   - An error if any step fails. The temp file is removed on failure.
func AtomicWriteFile(path string, write func(w io.Writer) error) error {
	staged, err := StageFile(path, write)
	if err != nil {
		return err
	}
	return CommitAll(staged)
}

// StagedFile is a fully written temp file waiting to be renamed to Path.
type StagedFile struct {
	Path    string
	tmpPath string
}

// StageFile writes a temp file next to path and syncs it. Nothing at path
// changes until the file is committed.
//
// RETURNS:
//   - The staged file.
//   - An error if any step fails. The temp file is removed on failure.
func StageFile(path string, write func(w io.Writer) error) (staged *StagedFile, err error) {
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()))

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			file.Close()
			os.Remove(tmpPath)
		}
	}()

	buffered := bufio.NewWriter(file)
	if err = write(buffered); err != nil {
		return nil, err
	}
	if err = buffered.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush temp file: %w", err)
	}
	if err = file.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return &StagedFile{Path: path, tmpPath: tmpPath}, nil
}

// Discard removes the temp file. It is safe to call on a nil or committed
// file.
func (f *StagedFile) Discard() {
	if f == nil || f.tmpPath == "" {
		return
	}
	os.Remove(f.tmpPath)
	f.tmpPath = ""
}

// DiscardAll discards every staged file.
func DiscardAll(files ...*StagedFile) {
	for _, f := range files {
		f.Discard()
	}
}

// CommitAll renames every staged file into place, all or nothing.
//
// Each target must be absent or a regular file. Existing targets are moved
// aside first and restored if a later rename fails, so on error every
// target holds its previous content and all temp files are removed.
//
// RETURNS:
//   - An error naming the target that could not be replaced.
func CommitAll(files ...*StagedFile) error {
	for _, f := range files {
		info, err := os.Lstat(f.Path)
		if err == nil && !info.Mode().IsRegular() {
			DiscardAll(files...)
			return fmt.Errorf("failed to replace %s: not a regular file", f.Path)
		}
		if err != nil && !os.IsNotExist(err) {
			DiscardAll(files...)
			return fmt.Errorf("failed to inspect %s: %w", f.Path, err)
		}
	}

	type committed struct {
		path   string
		backup string
	}
	var done []committed

	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			c := done[i]
			if c.backup != "" {
				os.Rename(c.backup, c.path)
			} else {
				os.Remove(c.path)
			}
		}
		DiscardAll(files...)
	}

	for _, f := range files {
		c := committed{path: f.Path}
		if FileExists(f.Path) {
			c.backup = f.tmpPath + ".bak"
			if err := os.Rename(f.Path, c.backup); err != nil {
				rollback()
				return fmt.Errorf("failed to move aside %s: %w", f.Path, err)
			}
		}
		if err := os.Rename(f.tmpPath, f.Path); err != nil {
			if c.backup != "" {
				os.Rename(c.backup, c.path)
			}
			rollback()
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
		f.tmpPath = ""
		done = append(done, c)
	}

	for _, c := range done {
		if c.backup != "" {
			os.Remove(c.backup)
		}
	}
	return nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary contains summary information about a report run.
type RunSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	Customers         int
	SkippedCustomers  int
	Products          int
	SkippedProducts   int
	CategoryConflicts int

	Partitions     int
	Files          int
	Lines          int
	SkippedLines   int
	BasketItems    int
	UnknownItems   int
	UnmatchedItems int

	ReportRows  int
	OutputFiles []string
	DryRun      bool
}

// WriteSummaryLog writes a run summary to a text file in outputDir.
//
// PARAMETERS:
//   - summary: The run summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	timestamp := summary.StartTime.Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("run_summary_%s.txt", timestamp))

	err := AtomicWriteFile(summaryPath, func(w io.Writer) error {
		_, err := io.WriteString(w, FormatSummary(summary))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	return summaryPath, nil
}

// FormatSummary renders the summary as plain text.
func FormatSummary(summary RunSummary) string {
	var sb strings.Builder

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(&sb, "Loyalty Purchase Report - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Dry Run:        %t\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.DryRun)

	fmt.Fprintf(&sb, "Inputs:\n"+
		"  Customers:          %d (skipped %d)\n"+
		"  Catalog Entries:    %d (skipped %d)\n"+
		"  Category Conflicts: %d\n"+
		"  Partitions:         %d\n"+
		"  Files:              %d\n"+
		"  Lines:              %d (skipped %d)\n"+
		"  Basket Items:       %d\n"+
		"  Unknown Products:   %d\n"+
		"  No Roster Customer: %d\n\n",
		summary.Customers, summary.SkippedCustomers,
		summary.Products, summary.SkippedProducts,
		summary.CategoryConflicts,
		summary.Partitions,
		summary.Files,
		summary.Lines, summary.SkippedLines,
		summary.BasketItems,
		summary.UnknownItems,
		summary.UnmatchedItems)

	fmt.Fprintf(&sb, "Output:\n  Report Rows:        %d\n", summary.ReportRows)
	for _, f := range summary.OutputFiles {
		fmt.Fprintf(&sb, "  File:               %s\n", f)
	}

	sb.WriteString("\n================================================================================\n" +
		"End of Summary\n")
	return sb.String()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
