// Package present turns ranked results into display-ready values shared by every surface.
package present

import (
	"github.com/kailas-cloud/semsearch/internal/domain"
)

// AbstractBudget is the number of abstract characters shown on a result card.
const AbstractBudget = 400

const ellipsis = "..."

// Card is one displayed search hit.
type Card struct {
	Rank     int     `json:"rank"`
	Index    int     `json:"index"`
	Score    float64 `json:"score"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Date     string  `json:"date"`
	Subject  string  `json:"subject"`
	Abstract string  `json:"abstract"`
}

// NewCard builds a card for the hit at 1-based rank.
func NewCard(rank, index int, doc domain.Document, score float64, budget int) Card {
	return Card{
		Rank:     rank,
		Index:    index,
		Score:    score,
		Title:    doc.Title,
		Author:   doc.Author,
		Date:     doc.Date,
		Subject:  doc.Subject,
		Abstract: Truncate(doc.Abstract, budget),
	}
}

// Truncate keeps the first budget characters of text and appends "..." when it cut anything.
// Counts runes, not bytes, so accented text is never split mid-character.
func Truncate(text string, budget int) string {
	if budget < 0 {
		budget = 0
	}
	n := 0
	for i := range text {
		if n == budget {
			return text[:i] + ellipsis
		}
		n++
	}
	return text
}

// PreviewRow is one line of the corpus preview table.
type PreviewRow struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
}

// NewPreviewRow projects a document onto the preview columns.
func NewPreviewRow(index int, doc domain.Document) PreviewRow {
	return PreviewRow{
		Index:   index,
		Title:   doc.Title,
		Author:  doc.Author,
		Subject: doc.Subject,
		Date:    doc.Date,
	}
}
