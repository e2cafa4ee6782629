package semsearch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type spaceConfig struct {
	matrix   string
	manifest string
	embedder Embedder

	model           string
	instruction     string
	templateVersion string
	normalized      bool
}

type clientConfig struct {
	documents string
	format    string
	columns   *Columns

	spaces map[Space]*spaceConfig

	redisAddr     string
	redisPassword string
	cacheTTL      time.Duration

	abstractBudget int
	warmup         bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// Columns names the document fields in the source file.
// The zero value selects the published export headers (Título, Autor, Materia, Fecha, Resumen).
type Columns struct {
	Title    string
	Author   string
	Subject  string
	Date     string
	Abstract string
}

// SpaceOption tunes one space registered with WithSpace.
type SpaceOption func(*spaceConfig)

// WithManifest points at the matrix manifest. Defaults to the matrix path with a .yaml extension.
func WithManifest(path string) SpaceOption {
	return func(s *spaceConfig) { s.manifest = path }
}

// WithInstruction sets the instruction used when the matrix has no manifest.
// Only the deep space applies instructions.
func WithInstruction(instruction, templateVersion string) SpaceOption {
	return func(s *spaceConfig) {
		s.instruction = instruction
		s.templateVersion = templateVersion
	}
}

// WithModelName records the model name when the matrix has no manifest.
func WithModelName(model string, normalized bool) SpaceOption {
	return func(s *spaceConfig) {
		s.model = model
		s.normalized = normalized
	}
}

// WithDocuments sets the CSV or Parquet file holding the corpus records.
func WithDocuments(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.documents = path
	})
}

// WithFormat forces the documents format ("csv" or "parquet") instead of inferring it from the extension.
func WithFormat(format string) Option {
	return optionFunc(func(c *clientConfig) {
		c.format = format
	})
}

// WithColumns overrides the document column names.
func WithColumns(cols Columns) Option {
	return optionFunc(func(c *clientConfig) {
		c.columns = &cols
	})
}

// WithSpace registers a searchable space: its precomputed matrix and the embedder for queries.
// Both Deep and Fast must be registered; their matrices are aligned with the documents.
func WithSpace(space Space, matrixPath string, e Embedder, opts ...SpaceOption) Option {
	return optionFunc(func(c *clientConfig) {
		sc := &spaceConfig{matrix: matrixPath, embedder: e}
		for _, o := range opts {
			o(sc)
		}
		if c.spaces == nil {
			c.spaces = make(map[Space]*spaceConfig)
		}
		c.spaces[space] = sc
	})
}

// WithRedis caches query vectors in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddr = addr
		c.redisPassword = password
	})
}

// WithCacheTTL expires cached query vectors. Default: no expiry.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithAbstractBudget sets how many abstract characters each result keeps.
// Default: 400.
func WithAbstractBudget(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.abstractBudget = n
	})
}

// WithWarmup prepares every embedder during Open instead of on first query.
func WithWarmup() Option {
	return optionFunc(func(c *clientConfig) {
		c.warmup = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
