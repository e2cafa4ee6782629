package semsearch

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/present"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn   func(ctx context.Context, space domain.Space, query string, k int) (searchuc.Response, error)
	explainFn  func(query string) (present.TokenChart, error)
	documentFn func(index int) (domain.Document, error)
	spaces     []searchuc.SpaceInfo
	rows       int
}

func (m *mockSearchUC) Search(
	ctx context.Context, space domain.Space, query string, k int,
) (searchuc.Response, error) {
	return m.searchFn(ctx, space, query, k)
}

func (m *mockSearchUC) Explain(query string) (present.TokenChart, error) {
	return m.explainFn(query)
}

func (m *mockSearchUC) Document(index int) (domain.Document, error) {
	return m.documentFn(index)
}

func (m *mockSearchUC) Spaces() []searchuc.SpaceInfo { return m.spaces }

func (m *mockSearchUC) RowCount() int { return m.rows }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- warmer mock ---

type mockWarmer struct {
	err   error
	calls int
}

func (m *mockWarmer) Warmup(context.Context) error {
	m.calls++
	return m.err
}

// --- helpers ---

func testClient(search searchUseCase) *Client {
	return &Client{searchSvc: search}
}
