package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/kailas-cloud/semsearch/internal/present"
)

var (
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	modeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	cardTitle    = lipgloss.NewStyle().Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	positiveBar  = lipgloss.NewStyle().Foreground(lipgloss.Color(present.PositiveColor))
	negativeBar  = lipgloss.NewStyle().Foreground(lipgloss.Color(present.NegativeColor))
)

func joinVertical(parts ...string) string {
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func joinHorizontal(parts ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderCards(cards []present.Card) string {
	if len(cards) == 0 {
		return "Sin resultados todavía."
	}
	var b strings.Builder
	for i, c := range cards {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(cardTitle.Render(fmt.Sprintf("%d. %s", c.Rank, c.Title)))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("👤 %s | 📅 %s", c.Author, c.Date)))
		b.WriteString("\n")
		b.WriteString(c.Abstract)
	}
	return b.String()
}

// renderChart draws one horizontal bar per token, scaled to the largest magnitude.
func renderChart(chart present.TokenChart, width int) string {
	if len(chart.Tokens) == 0 {
		return ""
	}
	labelWidth := 0
	maxAbs := 0.0
	for _, t := range chart.Tokens {
		labelWidth = max(labelWidth, lipgloss.Width(t.Token))
		maxAbs = math.Max(maxAbs, math.Abs(t.Value))
	}
	barWidth := max(1, width-labelWidth-10)

	lines := []string{sectionStyle.Render(chart.Label)}
	for _, t := range chart.Tokens {
		n := 0
		if maxAbs > 0 {
			n = int(math.Round(math.Abs(t.Value) / maxAbs * float64(barWidth)))
		}
		style := negativeBar
		if t.Value > 0 {
			style = positiveBar
		}
		label := t.Token + strings.Repeat(" ", labelWidth-lipgloss.Width(t.Token))
		lines = append(lines, fmt.Sprintf("%s %s %+.2f", label, style.Render(strings.Repeat("█", n)), t.Value))
	}
	return strings.Join(lines, "\n")
}

func newPreviewTable(rows []present.PreviewRow, height int) table.Model {
	cols := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Título", Width: 28},
		{Title: "Autor", Width: 16},
		{Title: "Materia", Width: 14},
		{Title: "Fecha", Width: 10},
	}
	trows := make([]table.Row, len(rows))
	for i, r := range rows {
		trows[i] = table.Row{strconv.Itoa(r.Index), r.Title, r.Author, r.Subject, r.Date}
	}
	return table.New(
		table.WithColumns(cols),
		table.WithRows(trows),
		table.WithHeight(height+1),
	)
}
