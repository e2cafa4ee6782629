package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/present"
	"github.com/kailas-cloud/semsearch/internal/retrieval"
)

// DefaultK is the number of cards returned when a caller does not ask for a count.
const DefaultK = 3

// Response is one answered query.
type Response struct {
	QueryID uuid.UUID      `json:"query_id"`
	Space   domain.Space   `json:"space"`
	K       int            `json:"k"`
	Latency time.Duration  `json:"-"`
	Cards   []present.Card `json:"results"`
}

// SpaceInfo describes a searchable embedding space.
type SpaceInfo struct {
	Name            string `json:"name"`
	Label           string `json:"label"`
	Model           string `json:"model"`
	Dimensions      int    `json:"dimensions"`
	TemplateVersion string `json:"template_version,omitempty"`
	Loaded          bool   `json:"loaded"`
}

// Service answers queries against the loaded corpus.
type Service struct {
	corpus Corpus
	enc    Encoder
	budget int
	rng    func() *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithAbstractBudget overrides the number of abstract characters on each card.
func WithAbstractBudget(n int) Option {
	return func(s *Service) { s.budget = n }
}

// WithRand sets the random source factory used by Explain.
func WithRand(f func() *rand.Rand) Option {
	return func(s *Service) { s.rng = f }
}

// New creates a search service.
func New(corpus Corpus, enc Encoder, opts ...Option) *Service {
	s := &Service{
		corpus: corpus,
		enc:    enc,
		budget: present.AbstractBudget,
		rng: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // display only
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search embeds the query in the given space and returns the k closest documents as cards.
func (s *Service) Search(ctx context.Context, space domain.Space, query string, k int) (Response, error) {
	start := time.Now()
	resp, err := s.search(ctx, space, query, k)
	elapsed := time.Since(start)

	label := space.String()
	metrics.SearchRequestsTotal.WithLabelValues(label, statusOf(err)).Inc()
	if err != nil {
		return Response{}, err
	}
	metrics.SearchDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	resp.Latency = elapsed
	return resp, nil
}

func (s *Service) search(ctx context.Context, space domain.Space, query string, k int) (Response, error) {
	if !space.IsValid() {
		return Response{}, fmt.Errorf("%w: unknown space %d", domain.ErrInvalidInput, int(space))
	}
	if k <= 0 {
		return Response{}, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if n := s.corpus.RowCount(); k > n {
		return Response{}, fmt.Errorf("%w: k=%d exceeds corpus size %d", domain.ErrInvalidInput, k, n)
	}

	vec, err := s.enc.Encode(ctx, space, query)
	if err != nil {
		return Response{}, fmt.Errorf("encode query: %w", err)
	}
	m, err := s.corpus.MatrixFor(space)
	if err != nil {
		return Response{}, fmt.Errorf("matrix: %w", err)
	}
	ranked, err := retrieval.Search(vec, m, k)
	if err != nil {
		return Response{}, fmt.Errorf("rank: %w", err)
	}

	cards := make([]present.Card, 0, len(ranked))
	for i, r := range ranked {
		doc, err := s.corpus.DocumentAt(r.Index)
		if err != nil {
			return Response{}, fmt.Errorf("join result %d: %w", i, err)
		}
		cards = append(cards, present.NewCard(i+1, r.Index, doc, r.Score, s.budget))
	}

	return Response{
		QueryID: uuid.New(),
		Space:   space,
		K:       k,
		Cards:   cards,
	}, nil
}

// Explain builds the simulated per-word chart for a query.
func (s *Service) Explain(query string) (present.TokenChart, error) {
	if strings.TrimSpace(query) == "" {
		return present.TokenChart{}, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	return present.SimulatedTokenChart(query, s.rng()), nil
}

// Preview returns a page of corpus preview rows starting at offset.
func (s *Service) Preview(offset, limit int) []present.PreviewRow {
	docs := s.corpus.Documents(offset, limit)
	rows := make([]present.PreviewRow, len(docs))
	for i, d := range docs {
		rows[i] = present.NewPreviewRow(offset+i, d)
	}
	return rows
}

// Document returns the full record at index.
func (s *Service) Document(index int) (domain.Document, error) {
	doc, err := s.corpus.DocumentAt(index)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return doc, nil
}

// RowCount returns the number of documents in the corpus.
func (s *Service) RowCount() int { return s.corpus.RowCount() }

// Spaces describes every searchable space in display order.
func (s *Service) Spaces() []SpaceInfo {
	spaces := s.enc.Spaces()
	out := make([]SpaceInfo, 0, len(spaces))
	for _, sp := range spaces {
		man := s.corpus.Manifest(sp)
		info := SpaceInfo{
			Name:       sp.String(),
			Label:      sp.Label(),
			Model:      man.Model,
			Dimensions: man.Dimensions,
			Loaded:     s.enc.Loaded(sp),
		}
		if sp.UsesInstruction() {
			info.TemplateVersion = man.TemplateVersion
		}
		out = append(out, info)
	}
	return out
}

// DefaultSpace is the first configured space in display order.
func (s *Service) DefaultSpace() domain.Space {
	if spaces := s.enc.Spaces(); len(spaces) > 0 {
		return spaces[0]
	}
	return domain.Deep
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrEncoding):
		return "encoding_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
