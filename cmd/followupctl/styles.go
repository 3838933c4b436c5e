package main

import (
	"github.com/charmbracelet/lipgloss"

	"followup-tracker/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	tierBase    = lipgloss.NewStyle().Width(8).Bold(true)

	tierStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   tierBase.Foreground(lipgloss.Color("#FF5F87")),
		model.PriorityMedium: tierBase.Foreground(lipgloss.Color("#FFAF00")),
		model.PriorityLow:    tierBase.Foreground(lipgloss.Color("#5FAF5F")),
	}
)

func renderTier(p model.Priority) string {
	style, ok := tierStyles[p]
	if !ok {
		style = tierBase
	}
	return style.Render(string(p))
}

// truncate cuts s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
