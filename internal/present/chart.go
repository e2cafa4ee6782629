package present

import (
	"math/rand/v2"
	"sort"
	"strings"
)

// ChartLabel captions the token chart. The values are random and must never be read as attribution.
const ChartLabel = "Contribución simulada de las palabras (no es una atribución real)"

// Bar colors for positive and negative values.
const (
	PositiveColor = "#4CAF50"
	NegativeColor = "#E53935"
)

// TokenValue is one bar of the chart.
type TokenValue struct {
	Token string  `json:"token"`
	Value float64 `json:"value"`
}

// Color returns the bar color for the value's sign.
func (t TokenValue) Color() string {
	if t.Value > 0 {
		return PositiveColor
	}
	return NegativeColor
}

// TokenChart is the illustrative per-word chart shown next to results.
type TokenChart struct {
	Label     string       `json:"label"`
	Simulated bool         `json:"simulated"`
	Tokens    []TokenValue `json:"tokens"`
}

// SimulatedTokenChart draws one standard-normal value per whitespace-separated token of query.
// It is unrelated to retrieval. Bars are sorted by value, largest first.
func SimulatedTokenChart(query string, rng *rand.Rand) TokenChart {
	words := strings.Fields(query)
	tokens := make([]TokenValue, len(words))
	for i, w := range words {
		tokens[i] = TokenValue{Token: w, Value: rng.NormFloat64()}
	}
	sort.SliceStable(tokens, func(a, b int) bool { return tokens[a].Value > tokens[b].Value })
	return TokenChart{Label: ChartLabel, Simulated: true, Tokens: tokens}
}
