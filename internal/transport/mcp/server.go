// Package mcp exposes corpus search as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
	"github.com/kailas-cloud/semsearch/internal/version"
)

// Server wraps the MCP server with the search service.
type Server struct {
	mcp      *gomcp.Server
	search   *searchuc.Service
	defaultK int
	maxK     int
	logger   *zap.Logger
}

// ServerOption configures optional Server settings.
type ServerOption func(*Server)

// WithLimits sets the default and maximum number of results per search.
func WithLimits(defaultK, maxK int) ServerOption {
	return func(s *Server) {
		s.defaultK = defaultK
		s.maxK = maxK
	}
}

// WithLogger sets the logger used for tool failures.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates an MCP server with the corpus tools registered.
func NewServer(search *searchuc.Service, opts ...ServerOption) (*Server, error) {
	if search == nil {
		return nil, errors.New("search service is required")
	}

	s := &Server{
		mcp: gomcp.NewServer(
			&gomcp.Implementation{
				Name:    "semsearch",
				Version: version.Version,
			},
			nil,
		),
		search:   search,
		defaultK: searchuc.DefaultK,
		maxK:     50,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{}) //nolint:wrapcheck // returned as-is to the command
}
