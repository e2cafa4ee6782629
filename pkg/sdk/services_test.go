package semsearch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/present"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

var sdkDocs = []domain.Document{
	{Title: "Migración rural", Author: "Pérez, Ana", Subject: "Sociología", Date: "2019", Abstract: "Estudio."},
	{Title: "Agua y ciudad", Author: "López, Juan", Subject: "Urbanismo", Date: "2020", Abstract: "Gestión."},
	{Title: "Maíz nativo", Author: "García, Luz", Subject: "Agronomía", Date: "2018", Abstract: "Variedades."},
}

func docsByIndex(i int) (domain.Document, error) {
	if i < 0 || i >= len(sdkDocs) {
		return domain.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, domain.NewIndexOutOfRange(i, len(sdkDocs)))
	}
	return sdkDocs[i], nil
}

func TestClient_Search(t *testing.T) {
	qid := uuid.New()
	mock := &mockSearchUC{
		searchFn: func(_ context.Context, space domain.Space, query string, k int) (searchuc.Response, error) {
			if space != Deep || query != "maíz" || k != 2 {
				t.Errorf("unexpected args: %v %q %d", space, query, k)
			}
			return searchuc.Response{
				QueryID: qid,
				Space:   space,
				K:       k,
				Cards: []present.Card{
					present.NewCard(1, 2, sdkDocs[2], 0.9, present.AbstractBudget),
					present.NewCard(2, 0, sdkDocs[0], 0.4, present.AbstractBudget),
				},
			}, nil
		},
	}

	res, err := testClient(mock).Search(context.Background(), Deep, "maíz", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.QueryID != qid.String() || res.Space != Deep {
		t.Errorf("response header = %+v", res)
	}
	if len(res.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.Results))
	}
	first := res.Results[0]
	if first.Rank != 1 || first.Index != 2 || first.Title != "Maíz nativo" || first.Score != 0.9 {
		t.Errorf("first result = %+v", first)
	}
}

func TestClient_Search_Error(t *testing.T) {
	mock := &mockSearchUC{
		searchFn: func(context.Context, domain.Space, string, int) (searchuc.Response, error) {
			return searchuc.Response{}, fmt.Errorf("encode query: %w", domain.ErrEncoding)
		},
	}

	_, err := testClient(mock).Search(context.Background(), Fast, "hola", 3)
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func TestClient_Explain(t *testing.T) {
	mock := &mockSearchUC{
		explainFn: func(query string) (present.TokenChart, error) {
			return present.TokenChart{Simulated: true, Tokens: []present.TokenValue{
				{Token: "agua", Value: 1.2},
				{Token: "ciudad", Value: -0.3},
			}}, nil
		},
	}

	got, err := testClient(mock).Explain("agua ciudad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Token != "agua" || got[1].Value != -0.3 {
		t.Errorf("Explain() = %+v", got)
	}
}

func TestClient_Document(t *testing.T) {
	c := testClient(&mockSearchUC{documentFn: docsByIndex})

	doc, err := c.Document(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Index != 1 || doc.Title != "Agua y ciudad" || doc.Abstract != "Gestión." {
		t.Errorf("Document(1) = %+v", doc)
	}

	if _, err := c.Document(7); !errors.Is(err, ErrIndexOutOfRange) || !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected out-of-range invalid input, got %v", err)
	}
}

func TestClient_Documents(t *testing.T) {
	c := testClient(&mockSearchUC{documentFn: docsByIndex, rows: len(sdkDocs)})

	tests := []struct {
		name          string
		offset, limit int
		wantIdx       []int
		wantErr       bool
	}{
		{name: "first page", offset: 0, limit: 2, wantIdx: []int{0, 1}},
		{name: "tail", offset: 1, limit: 10, wantIdx: []int{1, 2}},
		{name: "past end", offset: 3, limit: 5, wantIdx: []int{}},
		{name: "zero limit", offset: 0, limit: 0, wantIdx: []int{}},
		{name: "negative offset", offset: -1, limit: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Documents(tt.offset, tt.limit)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.wantIdx) {
				t.Fatalf("got %d documents, want %d", len(got), len(tt.wantIdx))
			}
			for i, d := range got {
				if d.Index != tt.wantIdx[i] {
					t.Errorf("documents[%d].Index = %d, want %d", i, d.Index, tt.wantIdx[i])
				}
			}
		})
	}
}

func TestClient_Spaces(t *testing.T) {
	c := testClient(&mockSearchUC{spaces: []searchuc.SpaceInfo{
		{Name: "deep", Label: "Profundidad (Instructor)", Dimensions: 768, TemplateVersion: "instructor-v1"},
		{Name: "fast", Label: "Relevancia y velocidad (Distiluse)", Dimensions: 512, Loaded: true},
	}})

	got := c.Spaces()
	if len(got) != 2 || got[0].Name != "deep" || got[0].TemplateVersion != "instructor-v1" || !got[1].Loaded {
		t.Errorf("Spaces() = %+v", got)
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"corpus":     healthuc.CheckOK,
			"model_deep": healthuc.CheckError,
			"model_fast": healthuc.CheckPending,
		},
	}}}

	h := c.Health(context.Background())
	if h.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", h.Status)
	}
	if h.Checks["model_deep"] != "error" || h.Checks["model_fast"] != "pending" {
		t.Errorf("Checks = %v", h.Checks)
	}
}

func TestClient_Warmup(t *testing.T) {
	w := &mockWarmer{}
	c := &Client{models: w}
	if err := c.Warmup(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w.err = fmt.Errorf("warmup deep: %w", domain.ErrModelUnavailable)
	if err := c.Warmup(context.Background()); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
	if w.calls != 2 {
		t.Errorf("calls = %d, want 2", w.calls)
	}
}
