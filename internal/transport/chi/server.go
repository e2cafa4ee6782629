package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/present"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest         = "bad_request"
	CodeInvalidInput       = "invalid_input"
	CodeCannotProcessQuery = "cannot_process_query"
	CodeInternalError      = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
	Space string `json:"space"`
	K     *int   `json:"k,omitempty"`
}

// SearchResponse is the body returned by POST /search.
type SearchResponse struct {
	QueryID   string         `json:"query_id"`
	Space     string         `json:"space"`
	K         int            `json:"k"`
	LatencyMs float64        `json:"latency_ms"`
	Results   []present.Card `json:"results"`
}

// ExplainRequest is the body of POST /explain.
type ExplainRequest struct {
	Query string `json:"query"`
}

// PreviewResponse is the body returned by GET /documents.
type PreviewResponse struct {
	Items  []present.PreviewRow `json:"items"`
	Offset int                  `json:"offset"`
	Limit  int                  `json:"limit"`
	Total  int                  `json:"total"`
}

// DocumentResponse is the body returned by GET /documents/{index}.
type DocumentResponse struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Date     string `json:"date"`
	Subject  string `json:"subject"`
	Abstract string `json:"abstract"`
}

// Limits bounds client-supplied counts.
type Limits struct {
	DefaultK     int
	MaxK         int
	PreviewLimit int
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error) bool

// Server serves the search API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, limits Limits, logger *zap.Logger) *Server {
	if limits.DefaultK <= 0 {
		limits.DefaultK = searchuc.DefaultK
	}
	if limits.MaxK < limits.DefaultK {
		limits.MaxK = limits.DefaultK
	}
	if limits.PreviewLimit <= 0 {
		limits.PreviewLimit = 20
	}
	s := &Server{
		search: search,
		health: health,
		limits: limits,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrEncoding, http.StatusUnprocessableEntity, CodeCannotProcessQuery),
		indexOutOfRangeHandler,
	}
	return s
}

// Routes mounts the API handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/spaces", s.ListSpaces)
	r.Get("/documents", s.ListDocuments)
	r.Get("/documents/{index}", s.GetDocument)
	r.Post("/search", s.Search)
	r.Post("/explain", s.Explain)
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	space := s.search.DefaultSpace()
	if req.Space != "" {
		sp, err := domain.ParseSpace(req.Space)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		space = sp
	}

	k := s.limits.DefaultK
	if req.K != nil {
		k = *req.K
	}
	if k > s.limits.MaxK {
		writeError(w, http.StatusBadRequest, CodeInvalidInput,
			fmt.Sprintf("k must be between 1 and %d", s.limits.MaxK))
		return
	}

	resp, err := s.search.Search(r.Context(), space, req.Query, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		QueryID:   resp.QueryID.String(),
		Space:     resp.Space.String(),
		K:         resp.K,
		LatencyMs: float64(resp.Latency.Microseconds()) / 1000,
		Results:   resp.Cards,
	})
}

// Explain handles POST /explain.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	chart, err := s.search.Explain(req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	var offset, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offset); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter offset: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter limit: "+err.Error())
		return
	}

	off, lim := 0, s.limits.PreviewLimit
	if offset != nil {
		off = *offset
	}
	if limit != nil {
		lim = *limit
	}
	if off < 0 || lim <= 0 || lim > 1000 {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "offset must be >= 0 and limit between 1 and 1000")
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		Items:  s.search.Preview(off, lim),
		Offset: off,
		Limit:  lim,
		Total:  s.search.RowCount(),
	})
}

// GetDocument handles GET /documents/{index}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	var index int
	err := runtime.BindStyledParameterWithOptions("simple", "index", chi.URLParam(r, "index"), &index,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter index: "+err.Error())
		return
	}

	doc, err := s.search.Document(index)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		Index:    index,
		Title:    doc.Title,
		Author:   doc.Author,
		Date:     doc.Date,
		Subject:  doc.Subject,
		Abstract: doc.Abstract,
	})
}

// ListSpaces handles GET /spaces.
func (s *Server) ListSpaces(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.search.Spaces()})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees the sentinel's message, never the wrapped detail.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		logger.FromContext(r.Context()).Warn("domain error", zap.Error(err))
		msg := sentinel.Error()
		if errors.Is(err, domain.ErrInvalidInput) {
			msg = clientDetail(err)
		}
		writeError(w, status, code, msg)
		return true
	}
}

// indexOutOfRangeHandler reports a ranked index that the document table does not have.
// It means the corpus artifacts are inconsistent, so it is an internal error.
func indexOutOfRangeHandler(w http.ResponseWriter, r *http.Request, err error) bool {
	var oor *domain.IndexOutOfRangeError
	if !errors.As(err, &oor) {
		return false
	}
	logger.FromContext(r.Context()).Error("ranked index outside corpus",
		zap.Int("index", oor.Index),
		zap.Int("row_count", oor.RowCount),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
	return true
}

// clientDetail keeps the innermost message of an invalid-input chain, which names the bad field.
func clientDetail(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, domain.ErrInvalidInput.Error()+": "); i >= 0 {
		return msg[i:]
	}
	return domain.ErrInvalidInput.Error()
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, r, err) {
			return
		}
	}
	logger.FromContext(r.Context()).Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
