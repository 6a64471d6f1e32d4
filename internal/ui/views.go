package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderProcessingView renders the main view while a run is in progress.
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")
	b.WriteString(renderStageBox(m))
	b.WriteString("\n\n")
	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header.
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#0A84FF")).
		Render("audioconvertctl")

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render(fmt.Sprintf("%s → %s", filepath.Base(m.InputPath), filepath.Base(m.OutputPath)))

	return title + "\n" + subtitle
}

// renderStageBox renders the per-tick pipeline stage indicators (spec.md
// §4.6's four DSP stages plus the rate-match delay).
func renderStageBox(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#5AC8FA")).
		Padding(0, 1).
		Width(60)

	var content strings.Builder
	content.WriteString(fmt.Sprintf("Tick %d\n\n", m.Tick))
	content.WriteString(renderStageLine("in-convert", m.InPassthrough))
	content.WriteString(renderStageLine("channel-mix", m.MixPassthrough))
	content.WriteString(renderStageLine("resample", m.ResamplePassthrough))
	content.WriteString(renderStageLine("out-convert", m.OutPassthrough))

	if m.RateMatchDelay != 0 {
		content.WriteString(fmt.Sprintf("\nRate-match delay: %d frames", m.RateMatchDelay))
	}

	return box.Render(content.String())
}

// renderStageLine renders one pipeline stage's passthrough/active state.
func renderStageLine(name string, passthrough bool) string {
	if passthrough {
		icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("○")
		return fmt.Sprintf(" %s %-12s passthrough\n", icon, name)
	}
	icon := lipgloss.NewStyle().Foreground(lipgloss.Color("#5AC8FA")).Render("●")
	return fmt.Sprintf(" %s %-12s active\n", icon, name)
}

// renderOverallProgress renders the running footer.
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#888888")).
		Padding(0, 1).
		Width(60)

	elapsed := time.Since(m.StartTime).Round(time.Millisecond)
	content := fmt.Sprintf("Frames out: %d | Elapsed: %s", m.FramesOut, elapsed)

	return box.Render(content)
}

// renderCompletionSummary renders the final summary once the run has
// finished (spec.md §4.6, the driver loop's terminal state).
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	if m.Err != nil {
		header := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0A84FF")).
			Render("✗ Conversion Failed")
		b.WriteString(header)
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("Error: %v\n", m.Err))
		return b.String()
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AA00")).
		Render("✓ Conversion Complete")
	b.WriteString(header)
	b.WriteString("\n\n")

	elapsed := time.Since(m.StartTime).Round(time.Millisecond)
	b.WriteString(fmt.Sprintf(" %s → %s\n", filepath.Base(m.InputPath), filepath.Base(m.OutputPath)))
	b.WriteString(fmt.Sprintf("   Ticks: %d | Frames: %d | Elapsed: %s\n", m.Tick, m.FramesOut, elapsed))

	return b.String()
}
