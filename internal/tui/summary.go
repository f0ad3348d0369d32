package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/batchrun/internal/engine/batch"
)

// printer formats counts with thousand separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatNumber formats n with thousand separators, e.g. 18248 as "18,248".
func FormatNumber(n int) string {
	return printer.Sprintf("%d", n)
}

// RenderSummary renders the end-of-run box.
func RenderSummary(s batch.Summary) string {
	status := SuccessStyle.Render("completed")
	switch {
	case s.Aborted:
		status = WarningStyle.Render("aborted")
	case s.Failed > 0:
		status = FailureStyle.Render("completed with failures")
	}

	rows := [][2]string{
		{"Status", status},
		{"Run ID", ValueStyle.Render(s.RunID)},
		{"Items", ValueStyle.Render(FormatNumber(s.Total))},
		{"Succeeded", SuccessStyle.Render(FormatNumber(s.Successful))},
		{"Failed", failedStyle(s.Failed).Render(FormatNumber(s.Failed))},
		{"Retries", ValueStyle.Render(FormatNumber(s.TotalRetries))},
		{"Duration", ValueStyle.Render(s.Duration.Round(time.Millisecond).String())},
	}
	if s.Aborted {
		rows = append(rows, [2]string{"Skipped", WarningStyle.Render(FormatNumber(s.Total - s.Processed()))})
	}

	labelWidth := 0
	for _, r := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(r[0]))
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, HeaderStyle.Render("Batch Summary"))
	for _, r := range rows {
		label := LabelStyle.Render(fmt.Sprintf("%-*s", labelWidth, r[0]))
		lines = append(lines, label+"  "+r[1])
	}
	return BoxStyle.Render(strings.Join(lines, "\n"))
}
