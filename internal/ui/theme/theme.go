// Package theme styles the console output of the operator commands.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Palette.
var (
	Primary = lipgloss.Color("#2563EB") // Bank blue
	Success = lipgloss.Color("#22C55E")
	Error   = lipgloss.Color("#F43F5E")
	Warning = lipgloss.Color("#F59E0B")
	Text    = lipgloss.Color("#F8FAFC")
	TextDim = lipgloss.Color("#94A3B8")
	Border  = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Value = lipgloss.NewStyle().
		Bold(true).
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Warn = lipgloss.NewStyle().
		Foreground(Warning)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	barFilled = lipgloss.NewStyle().Foreground(Success)
	barEmpty  = lipgloss.NewStyle().Foreground(Border)
)

// labelWidth aligns KV rows.
const labelWidth = 20

// Heading renders a section title followed by a rule of the same width.
func Heading(s string) string {
	return Title.Render(s) + "\n" + Label.Render(strings.Repeat("─", lipgloss.Width(s)))
}

// KV renders an aligned "label  value" row.
func KV(label string, value any) string {
	pad := max(labelWidth-lipgloss.Width(label), 1)
	return Label.Render(label+strings.Repeat(" ", pad)) + Value.Render(fmt.Sprint(value))
}

// Bar renders pct (0..100) as a bar width cells wide.
func Bar(pct float64, width int) string {
	pct = min(max(pct, 0), 100)
	filled := int(pct / 100 * float64(width))
	return barFilled.Render(strings.Repeat("█", filled)) + barEmpty.Render(strings.Repeat("░", width-filled))
}

// Verdict renders a correct or incorrect marker.
func Verdict(ok bool) string {
	if ok {
		return Correct.Render("✓")
	}
	return Incorrect.Render("✗")
}
