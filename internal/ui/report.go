package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/thesavant42/snapshot-scout/internal/analysis"
	"github.com/thesavant42/snapshot-scout/internal/models"
)

// Report tables are plain string formatting; lipgloss only colors the text.

var snapshotColWidths = []int{12, 11, 6, 60} // Captured, Change, Status, Archive URL

// PrintResult writes a discovery report to stdout
func PrintResult(r models.DiscoveryResult) {
	WriteResult(os.Stdout, r)
}

// WriteResult writes a discovery report to w
func WriteResult(w io.Writer, r models.DiscoveryResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Snapshot history for "+r.URL))

	if r.Error != "" {
		fmt.Fprintln(w, errorStyle().Render("Error: "+r.Error))
	}

	if !r.Available {
		fmt.Fprintln(w, HintStyle.Render(fmt.Sprintf("No archived captures found (%s)", r.DataSource)))
		writeAttempts(w, r.VariantsTried)
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "%s %s   %s %s   %s %s\n",
		NormalStyle.Render("Snapshots:"), StatStyle.Render(fmt.Sprintf("%d", len(r.HistoricalSnapshots))),
		NormalStyle.Render("Quality:"), AccentStyle.Render(r.AnalysisQuality),
		NormalStyle.Render("Matched:"), AccentStyle.Render(r.SuccessfulURL))
	if r.RootDomain != "" {
		fmt.Fprintln(w, HintStyle.Render("Root domain: "+r.RootDomain))
	}
	fmt.Fprintln(w)

	writeSnapshotTable(w, r.HistoricalSnapshots)
	writeWindows(w, r.ExperimentWindows)
}

func writeSnapshotTable(w io.Writer, records []models.SnapshotRecord) {
	totalWidth := 2
	for _, cw := range snapshotColWidths {
		totalWidth += cw + 3
	}
	totalWidth--
	separator := strings.Repeat("─", totalWidth-2)

	fmt.Fprintln(w, BorderStyle.Render("┌"+separator+"┐"))
	header := fmt.Sprintf("│ %-*s │ %-*s │ %-*s │ %-*s │",
		snapshotColWidths[0], "Captured",
		snapshotColWidths[1], "Change",
		snapshotColWidths[2], "Status",
		snapshotColWidths[3], "Archive URL")
	fmt.Fprintln(w, HeaderStyle.Render(header))
	fmt.Fprintln(w, BorderStyle.Render("├"+separator+"┤"))

	for _, rec := range records {
		captured := rec.Timestamp
		if t, err := analysis.ParseTimestamp(rec.Timestamp); err == nil {
			captured = t.Format("2006-01-02")
		}
		change := string(rec.ChangeType)
		// Pad before coloring so ANSI codes don't skew the column
		changeCell := RenderChangeType(rec.ChangeType) + strings.Repeat(" ", max(0, snapshotColWidths[1]-len(change)))

		fmt.Fprintf(w, "%s %-*s %s %s %s %-*s %s %-*s %s\n",
			BorderStyle.Render("│"),
			snapshotColWidths[0], captured,
			BorderStyle.Render("│"),
			changeCell,
			BorderStyle.Render("│"),
			snapshotColWidths[2], rec.StatusCode,
			BorderStyle.Render("│"),
			snapshotColWidths[3], truncate(rec.ArchiveURL, snapshotColWidths[3]),
			BorderStyle.Render("│"))
	}

	fmt.Fprintln(w, BorderStyle.Render("└"+separator+"┘"))
	fmt.Fprintln(w)
}

func writeWindows(w io.Writer, windows []models.ExperimentWindow) {
	if len(windows) == 0 {
		return
	}
	fmt.Fprintln(w, TitleStyle.Render("Experiment windows"))
	for _, win := range windows {
		fmt.Fprintf(w, "  %s %s  %s %s  %s\n",
			AccentStyle.Render(win.Type),
			NormalStyle.Render(fmt.Sprintf("(%d%% confidence)", win.Confidence)),
			NormalStyle.Render("impact:"),
			impactStyle(win.EstimatedImpact).Render(win.EstimatedImpact),
			HintStyle.Render(win.Period))
	}
	fmt.Fprintln(w)
}

func writeAttempts(w io.Writer, attempts []models.VariantAttempt) {
	if len(attempts) == 0 {
		return
	}
	fmt.Fprintln(w, NormalStyle.Render("Variants tried:"))
	for _, a := range attempts {
		line := fmt.Sprintf("  %-50s %4d records %6dms", truncate(a.Variant, 50), a.Records, a.DurationMs)
		if a.Error != "" {
			line += "  " + a.Error
		}
		fmt.Fprintln(w, HintStyle.Render(line))
	}
}

// PrintBatchSummary prints one line per analyzed URL
func PrintBatchSummary(results []models.DiscoveryResult) {
	WriteBatchSummary(os.Stdout, results)
}

// WriteBatchSummary writes one line per analyzed URL to w
func WriteBatchSummary(w io.Writer, results []models.DiscoveryResult) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Analyzed %d URLs", len(results))))
	available := 0
	for _, r := range results {
		status := HintStyle.Render("no data")
		if r.Available {
			available++
			status = StatStyle.Render(fmt.Sprintf("%d snapshots", len(r.HistoricalSnapshots))) +
				NormalStyle.Render(", "+r.AnalysisQuality+" quality")
		}
		if r.Error != "" {
			status = errorStyle().Render(r.Error)
		}
		fmt.Fprintf(w, "  %-50s %s\n", truncate(r.URL, 50), status)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, HintStyle.Render(fmt.Sprintf("Summary: %d of %d URLs have archived captures", available, len(results))))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println(StatStyle.Render(message))
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintln(os.Stderr, errorStyle().Render("Error: "+message))
}

func errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorBorder).Bold(true)
}

func impactStyle(impact string) lipgloss.Style {
	switch impact {
	case models.ImpactHigh:
		return lipgloss.NewStyle().Foreground(ColorBorder).Bold(true)
	case models.ImpactMedium:
		return lipgloss.NewStyle().Foreground(ColorAccentDim)
	default:
		return lipgloss.NewStyle().Foreground(ColorTextDim)
	}
}

// truncate shortens s to width runes so multi-byte hosts are never split
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
