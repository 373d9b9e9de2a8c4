// Package tui renders terminal output for the reporter commands: a
// partition progress bar while aggregating and styled summaries afterwards.
package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/ginjaninja78/loyalty-purchase-report/internal/validation"
	"github.com/ginjaninja78/loyalty-purchase-report/pkg/utils"
)

// Colors
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	warning = lipgloss.Color("#FFAA00")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warning)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

const rule = "─────────────────────────────────────"

// =============================================================================
// PROGRESS
// =============================================================================

// Progress reports folded partitions. A nil *Progress is a no-op, so
// callers can pass one unconditionally.
type Progress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewProgress returns a progress reporter writing to w, or nil when
// disabled.
func NewProgress(w io.Writer, enabled bool) *Progress {
	if !enabled {
		return nil
	}
	return &Progress{w: w}
}

// Start creates the bar once the partition count is known.
func (p *Progress) Start(total int) {
	if p == nil {
		return
	}
	p.bar = progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("partitions"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// Step marks one partition as folded.
func (p *Progress) Step(name string) {
	if p == nil || p.bar == nil {
		return
	}
	p.bar.Describe(name)
	_ = p.bar.Add(1)
}

// Finish clears the bar.
func (p *Progress) Finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

// =============================================================================
// SUMMARIES
// =============================================================================

// RenderSummary formats a finished run for the terminal.
func RenderSummary(s utils.RunSummary) string {
	var sb strings.Builder

	status := successStyle.Render("✓ Report written")
	if s.DryRun {
		status = successStyle.Render("✓ Dry run complete") + mutedStyle.Render(" (nothing written)")
	}
	sb.WriteString("\n" + status + "\n")
	sb.WriteString(mutedStyle.Render("  "+rule) + "\n")

	line := func(label string, value any) {
		fmt.Fprintf(&sb, "  %s %s\n", mutedStyle.Render(fmt.Sprintf("%-18s", label+":")), titleStyle.Render(fmt.Sprint(value)))
	}
	line("Customers", s.Customers)
	line("Products", s.Products)
	line("Partitions", s.Partitions)
	line("Transaction files", s.Files)
	line("Basket items", s.BasketItems)
	line("Report rows", s.ReportRows)
	line("Duration", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))

	if s.UnknownItems > 0 {
		sb.WriteString("  " + warningStyle.Render(fmt.Sprintf("%d item(s) had no catalog category", s.UnknownItems)) + "\n")
	}
	if s.UnmatchedItems > 0 {
		sb.WriteString("  " + warningStyle.Render(fmt.Sprintf("%d item(s) belong to customers missing from the roster", s.UnmatchedItems)) + "\n")
	}
	if s.SkippedLines > 0 {
		sb.WriteString("  " + warningStyle.Render(fmt.Sprintf("%d malformed line(s) skipped", s.SkippedLines)) + "\n")
	}
	if s.CategoryConflicts > 0 {
		sb.WriteString("  " + warningStyle.Render(fmt.Sprintf("%d product(s) listed under several categories", s.CategoryConflicts)) + "\n")
	}

	for _, f := range s.OutputFiles {
		fmt.Fprintf(&sb, "  %s %s\n", mutedStyle.Render("Output:"), codeStyle.Render(f))
	}
	sb.WriteString(mutedStyle.Render("  "+rule) + "\n")
	return sb.String()
}

// RenderFindings formats preflight findings for the terminal.
func RenderFindings(result *validation.ValidationResult) string {
	var sb strings.Builder

	if result.IsValid {
		sb.WriteString("\n" + successStyle.Render("✓ Inputs look good") + "\n")
	} else {
		sb.WriteString("\n" + accentStyle.Render(fmt.Sprintf("✗ %d error(s)", result.ErrorCount)) + "\n")
	}
	sb.WriteString(mutedStyle.Render("  "+rule) + "\n")
	fmt.Fprintf(&sb, "  %s %d customers, %d products, %d partitions, %d files\n",
		mutedStyle.Render("Found:"), result.Customers, result.Products, result.Partitions, result.Files)

	for _, f := range result.Errors {
		marker := warningStyle.Render("!")
		if f.Severity == validation.SeverityError {
			marker = accentStyle.Render("✗")
		}
		fmt.Fprintf(&sb, "  %s %s %s\n", marker, mutedStyle.Render(f.Input+":"), f.Message)
		if f.Path != "" {
			fmt.Fprintf(&sb, "    %s\n", mutedStyle.Render(f.Path))
		}
	}
	sb.WriteString(mutedStyle.Render("  "+rule) + "\n")
	return sb.String()
}
