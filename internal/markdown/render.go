package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/seastarlegal/seastar/internal/model"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	neutralStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	ongoingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	closedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	postponedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	scheduledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// RenderMarkdown renders markdown for the terminal. width <= 0 keeps
// glamour's default wrap.
func RenderMarkdown(content string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

// StatusStyle colours case and session statuses.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case model.CaseStatusClosed, model.SessionHeld:
		return closedStyle
	case model.CaseStatusOngoing:
		return ongoingStyle
	case model.CaseStatusPending, model.SessionPostponed:
		return postponedStyle
	case model.SessionScheduled:
		return scheduledStyle
	default:
		return neutralStyle
	}
}

func RenderField(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}

func RenderStatus(status string) string {
	return StatusStyle(status).Render(status)
}

// RenderRecord prints a record's fields, key field first, the rest sorted.
func RenderRecord(title string, rec model.Record, keyField string) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")
	for _, col := range Columns([]model.Record{rec}, keyField, true) {
		if col == BodyField {
			continue
		}
		v := FormatValue(rec[col])
		if col == "status" {
			v = RenderStatus(v)
		}
		sb.WriteString("  " + RenderField(col, v) + "\n")
	}
	if notes := rec.String(BodyField); notes != "" {
		sb.WriteString("\n" + notes + "\n")
	}
	return sb.String()
}
