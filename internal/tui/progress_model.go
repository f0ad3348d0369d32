package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/batchrun/internal/engine/batch"
)

// ProgressMsg carries a progress snapshot from the runner callbacks.
type ProgressMsg struct {
	Snapshot batch.ProgressSnapshot
}

// DoneMsg tells the model the run has finished.
type DoneMsg struct {
	Summary batch.Summary
}

// Layout constants for the progress view.
const (
	progressDefaultWidth = 60
	progressMaxWidth     = 100
	progressPadding      = 4
)

// ProgressModel is the Bubble Tea model showing a live batch run.
type ProgressModel struct {
	title    string
	bar      progress.Model
	snapshot batch.ProgressSnapshot
	summary  *batch.Summary

	// onInterrupt runs once when the user presses ctrl+c.
	onInterrupt func()
	interrupted bool
}

// NewProgressModel creates a progress view. onInterrupt is invoked when the
// user presses ctrl+c or q; it should cancel the run. It may be nil.
func NewProgressModel(title string, total, totalChunks int, onInterrupt func()) ProgressModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = progressDefaultWidth
	return ProgressModel{
		title:       title,
		bar:         bar,
		snapshot:    batch.ProgressSnapshot{Total: total, TotalChunks: totalChunks},
		onInterrupt: onInterrupt,
	}
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-progressPadding*2, 10), progressMaxWidth)
		return m, nil
	case ProgressMsg:
		m.snapshot = msg.Snapshot
		return m, nil
	case DoneMsg:
		s := msg.Summary
		m.summary = &s
		return m, tea.Quit
	case tea.KeyMsg:
		if key := msg.String(); (key == "ctrl+c" || key == "q") && !m.interrupted {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
		}
		return m, nil
	}
	return m, nil
}

// Snapshot returns the last snapshot received.
func (m ProgressModel) Snapshot() batch.ProgressSnapshot {
	return m.snapshot
}

// Interrupted reports whether the user asked to stop.
func (m ProgressModel) Interrupted() bool {
	return m.interrupted
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	if m.summary != nil {
		return ""
	}

	s := m.snapshot
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(s.Percentage / 100))
	b.WriteString("\n\n")

	parts := []string{
		LabelStyle.Render("items ") + ValueStyle.Render(fmt.Sprintf("%d/%d", s.Completed, s.Total)),
		LabelStyle.Render("ok ") + SuccessStyle.Render(FormatNumber(s.Successful)),
		LabelStyle.Render("failed ") + failedStyle(s.Failed).Render(FormatNumber(s.Failed)),
		LabelStyle.Render("chunk ") + ValueStyle.Render(fmt.Sprintf("%d/%d", s.CurrentChunk, s.TotalChunks)),
		LabelStyle.Render("eta ") + ValueStyle.Render(formatETA(s.EstimatedRemaining)),
	}
	b.WriteString(strings.Join(parts, MutedStyle.Render("  ·  ")))
	b.WriteString("\n")

	if m.interrupted {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render("stopping after the current chunk..."))
		b.WriteString("\n")
	} else {
		b.WriteString(MutedStyle.Render("\nctrl+c to stop after the current chunk"))
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().Padding(1, progressPadding/2).Render(b.String())
}

func failedStyle(failed int) lipgloss.Style {
	if failed > 0 {
		return FailureStyle
	}
	return ValueStyle
}

func formatETA(d *time.Duration) string {
	if d == nil {
		return "--"
	}
	return d.Round(time.Second).String()
}
