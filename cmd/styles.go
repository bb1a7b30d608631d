package cmd

import (
	"fmt"
	"strings"

	"github.com/aqlanhadi/cashalert/extractor"
	"github.com/charmbracelet/lipgloss"
)

var (
	accentColor  = lipgloss.Color("#4ECDC4")
	warningColor = lipgloss.Color("#FFE66D")
	errorColor   = lipgloss.Color("#FF6B6B")
	subtleColor  = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	successStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	subtleStyle = lipgloss.NewStyle().
			Foreground(subtleColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtleColor).
			Padding(0, 1)
)

// renderBox draws content under a title inside a rounded border.
func renderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		strings.TrimRight(content, "\n"),
	))
}

// renderResult renders the per-alert summary shown by extract.
func renderResult(r extractor.Result) string {
	meta := []string{subtleStyle.Render("value date " + r.ValueDate)}
	if r.Subject != "" {
		meta = append(meta, subtleStyle.Render(r.Subject))
	}
	if r.Discarded > 0 {
		meta = append(meta, warningStyle.Render(fmt.Sprintf("%d block(s) discarded", r.Discarded)))
	}

	title := fmt.Sprintf("%s: %d deposit(s)", r.Source, len(r.Deposits))
	return renderBox(title, strings.Join(meta, "\n")+"\n\n"+r.Summary())
}
