package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/present"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_corpus",
		Description: "Semantic search over the SciELO México article corpus. Returns the closest articles with title, author, date and a shortened abstract.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Free text query, usually in Spanish"},
				"space": {"type": "string", "enum": ["deep", "fast"], "description": "deep: slower, instruction-tuned model; fast: multilingual model (default: deep)"},
				"k": {"type": "number", "description": "Number of results (default 3)"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearchCorpus)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "get_document",
		Description: "Read one corpus article in full by its index, as returned by search_corpus.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"index": {"type": "number", "description": "Zero-based corpus index"}
			},
			"required": ["index"]
		}`),
	}, s.handleGetDocument)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_spaces",
		Description: "List the available embedding spaces with their models and load state.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleListSpaces)
}

type searchArgs struct {
	Query string `json:"query"`
	Space string `json:"space"`
	K     *int   `json:"k"`
}

func (s *Server) handleSearchCorpus(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args searchArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	space := s.search.DefaultSpace()
	if args.Space != "" {
		sp, err := domain.ParseSpace(args.Space)
		if err != nil {
			return toolError("%v", err), nil
		}
		space = sp
	}
	k := s.defaultK
	if args.K != nil {
		k = *args.K
	}
	if k > s.maxK {
		return toolError("k must be between 1 and %d", s.maxK), nil
	}

	resp, err := s.search.Search(ctx, space, args.Query, k)
	if err != nil {
		return s.domainError(err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d results in space %q (%s):\n\n", len(resp.Cards), resp.Space, resp.Space.Label())
	for _, c := range resp.Cards {
		writeCard(&b, c)
	}
	return toolText(b.String()), nil
}

type documentArgs struct {
	Index *int `json:"index"`
}

func (s *Server) handleGetDocument(_ context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args documentArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Index == nil {
		return toolError("index is required"), nil
	}

	doc, err := s.search.Document(*args.Index)
	if err != nil {
		return s.domainError(err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "Autor: %s\nFecha: %s\nMateria: %s\nÍndice: %d\n\n", doc.Author, doc.Date, doc.Subject, *args.Index)
	b.WriteString(doc.Abstract)
	return toolText(b.String()), nil
}

func (s *Server) handleListSpaces(_ context.Context, _ *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	spaces := s.search.Spaces()
	if len(spaces) == 0 {
		return toolText("No embedding spaces configured."), nil
	}
	var b strings.Builder
	for _, sp := range spaces {
		state := "not loaded yet"
		if sp.Loaded {
			state = "loaded"
		}
		fmt.Fprintf(&b, "- %s: %s, model %s, %d dimensions, %s\n", sp.Name, sp.Label, sp.Model, sp.Dimensions, state)
	}
	return toolText(b.String()), nil
}

func writeCard(b *strings.Builder, c present.Card) {
	fmt.Fprintf(b, "**%d. %s**\n", c.Rank, c.Title)
	fmt.Fprintf(b, "👤 %s | 📅 %s | índice %d | score %.4f\n", c.Author, c.Date, c.Index, c.Score)
	fmt.Fprintf(b, "%s\n\n", c.Abstract)
}

// domainError turns a use case error into a tool error without leaking internals.
func (s *Server) domainError(err error) *gomcp.CallToolResult {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return toolError("%v", err)
	case errors.Is(err, domain.ErrEncoding):
		return toolError("%s", domain.ErrEncoding)
	default:
		s.logger.Error("mcp tool failed", zap.Error(err))
		return toolError("internal error")
	}
}

func toolText(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
