package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/metrics"
)

// Loader builds the query embedder of one space. Called at most once per space per process.
type Loader func(ctx context.Context) (domain.Embedder, error)

// Corpus is the part of the corpus store the provider needs.
type Corpus interface {
	MatrixFor(space domain.Space) (domain.Matrix, error)
	Manifest(space domain.Space) domain.Manifest
}

// Provider turns query text into vectors comparable with a space's matrix.
// Each space owns one lazily loaded model cell.
type Provider struct {
	corpus Corpus
	cells  map[domain.Space]*cell
	logger *zap.Logger
}

// cell holds one space's model. The load runs once, detached from any caller's
// cancellation; a failed load stays failed for the life of the process.
type cell struct {
	space  domain.Space
	load   Loader
	wrap   func(domain.Embedder) domain.Embedder
	once   sync.Once
	ready  chan struct{}
	emb    domain.Embedder
	err    error
	logger *zap.Logger
}

// NewProvider creates a provider with one cell per configured loader.
// Deep-space embedders are wrapped with the instruction template from the matrix manifest.
func NewProvider(corpus Corpus, loaders map[domain.Space]Loader, logger *zap.Logger) *Provider {
	p := &Provider{
		corpus: corpus,
		cells:  make(map[domain.Space]*cell, len(loaders)),
		logger: logger,
	}
	for space, load := range loaders {
		c := &cell{
			space:  space,
			load:   load,
			ready:  make(chan struct{}),
			logger: logger,
		}
		if space.UsesInstruction() {
			template := corpus.Manifest(space).Template()
			c.wrap = func(e domain.Embedder) domain.Embedder {
				return domain.NewInstructionEmbedder(e, template)
			}
		}
		p.cells[space] = c
	}
	return p
}

// Encode embeds query text in the given space.
func (p *Provider) Encode(ctx context.Context, space domain.Space, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrEncoding)
	}
	c, ok := p.cells[space]
	if !ok {
		return nil, fmt.Errorf("%w: no model configured for space %s", domain.ErrInvalidInput, space)
	}
	m, err := p.corpus.MatrixFor(space)
	if err != nil {
		return nil, err
	}

	emb, err := c.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncoding, err)
	}

	res, err := emb.Embed(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("encode query: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: space %s: %w", domain.ErrEncoding, space, err)
	}
	if len(res.Embedding) != m.Cols() {
		return nil, fmt.Errorf("%w: space %s model returned %d dimensions, matrix has %d",
			domain.ErrInvalidInput, space, len(res.Embedding), m.Cols())
	}
	for _, v := range res.Embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: space %s model returned a non-finite vector", domain.ErrEncoding, space)
		}
	}
	return res.Embedding, nil
}

// Warmup loads every configured model concurrently and waits for all of them.
// A failed space stays unavailable; the others keep working.
func (p *Provider) Warmup(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range p.cells {
		g.Go(func() error {
			if _, err := c.get(gctx); err != nil {
				return fmt.Errorf("warmup %s: %w", c.space, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck // already wrapped per space
	}
	return nil
}

// Loaded reports whether the space's model finished loading successfully.
func (p *Provider) Loaded(space domain.Space) bool {
	ok, _ := p.State(space)
	return ok
}

// State reports the model cell state: loaded, failed (err != nil) or not yet attempted.
func (p *Provider) State(space domain.Space) (bool, error) {
	c, ok := p.cells[space]
	if !ok {
		return false, fmt.Errorf("%w: no model configured for space %s", domain.ErrInvalidInput, space)
	}
	select {
	case <-c.ready:
		return c.err == nil, c.err
	default:
		return false, nil
	}
}

// Spaces returns the spaces with a configured model.
func (p *Provider) Spaces() []domain.Space {
	out := make([]domain.Space, 0, len(p.cells))
	for _, s := range domain.AllSpaces {
		if _, ok := p.cells[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// get waits for the model, starting the load on first use.
// A caller that gives up does not cancel the load.
func (c *cell) get(ctx context.Context) (domain.Embedder, error) {
	c.once.Do(func() {
		go c.run(context.WithoutCancel(ctx))
	})
	select {
	case <-c.ready:
		return c.emb, c.err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s model: %w", c.space, ctx.Err())
	}
}

func (c *cell) run(ctx context.Context) {
	defer close(c.ready)

	start := time.Now()
	c.logger.Info("Loading embedding model", zap.Stringer("space", c.space))

	emb, err := c.safeLoad(ctx)
	elapsed := time.Since(start)
	metrics.ModelLoadDuration.WithLabelValues(c.space.String()).Observe(elapsed.Seconds())

	if err != nil {
		metrics.ModelLoadsTotal.WithLabelValues(c.space.String(), "error").Inc()
		c.logger.Error("Embedding model failed to load",
			zap.Stringer("space", c.space),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		c.err = fmt.Errorf("%w: space %s: %w", domain.ErrModelUnavailable, c.space, err)
		return
	}

	metrics.ModelLoadsTotal.WithLabelValues(c.space.String(), "success").Inc()
	c.logger.Info("Embedding model loaded",
		zap.Stringer("space", c.space),
		zap.Duration("elapsed", elapsed),
	)
	if c.wrap != nil {
		emb = c.wrap(emb)
	}
	c.emb = emb
}

func (c *cell) safeLoad(ctx context.Context) (emb domain.Embedder, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model loader panicked: %v", r)
		}
	}()
	emb, err = c.load(ctx)
	if err == nil && emb == nil {
		err = errors.New("loader returned no embedder")
	}
	return emb, err
}
