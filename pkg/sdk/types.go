package semsearch

import (
	"time"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/present"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Space selects which embedding matrix and query model answer a search.
type Space = domain.Space

// Searchable spaces.
const (
	// Deep is the instruction-tuned space: slower, better topical matches.
	Deep = domain.Deep
	// Fast is the multilingual space: quicker answers.
	Fast = domain.FastMultilingual
)

// ParseSpace resolves a space name such as "deep" or "fast".
func ParseSpace(name string) (Space, error) {
	return domain.ParseSpace(name) //nolint:wrapcheck // sentinel already wrapped
}

// Document is one corpus record.
type Document struct {
	Index    int
	Title    string
	Author   string
	Subject  string
	Date     string
	Abstract string
}

// Result is one ranked hit. Abstract is truncated for display.
type Result struct {
	Rank     int
	Index    int
	Score    float64
	Title    string
	Author   string
	Date     string
	Subject  string
	Abstract string
}

// SearchResponse is an answered query.
type SearchResponse struct {
	QueryID string
	Space   Space
	Latency time.Duration
	Results []Result
}

// SpaceInfo describes a configured space.
type SpaceInfo struct {
	Name            string
	Label           string
	Model           string
	Dimensions      int
	TemplateVersion string
	Loaded          bool
}

// TokenWeight is one bar of the simulated word chart.
// The values are random and carry no attribution meaning.
type TokenWeight struct {
	Token string
	Value float64
}

func toSearchResponse(r searchuc.Response) SearchResponse {
	out := SearchResponse{
		QueryID: r.QueryID.String(),
		Space:   r.Space,
		Latency: r.Latency,
		Results: make([]Result, len(r.Cards)),
	}
	for i, c := range r.Cards {
		out.Results[i] = Result{
			Rank:     c.Rank,
			Index:    c.Index,
			Score:    c.Score,
			Title:    c.Title,
			Author:   c.Author,
			Date:     c.Date,
			Subject:  c.Subject,
			Abstract: c.Abstract,
		}
	}
	return out
}

func toDocument(index int, d domain.Document) Document {
	return Document{
		Index:    index,
		Title:    d.Title,
		Author:   d.Author,
		Subject:  d.Subject,
		Date:     d.Date,
		Abstract: d.Abstract,
	}
}

func toSpaceInfo(s searchuc.SpaceInfo) SpaceInfo {
	return SpaceInfo{
		Name:            s.Name,
		Label:           s.Label,
		Model:           s.Model,
		Dimensions:      s.Dimensions,
		TemplateVersion: s.TemplateVersion,
		Loaded:          s.Loaded,
	}
}

func toTokenWeights(c present.TokenChart) []TokenWeight {
	out := make([]TokenWeight, len(c.Tokens))
	for i, t := range c.Tokens {
		out[i] = TokenWeight{Token: t.Token, Value: t.Value}
	}
	return out
}
