package semsearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/corpus"
	"github.com/kailas-cloud/semsearch/internal/db"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/present"
	"github.com/kailas-cloud/semsearch/internal/repository/embcache"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped in tests.
type searchUseCase interface {
	Search(ctx context.Context, space domain.Space, query string, k int) (searchuc.Response, error)
	Explain(query string) (present.TokenChart, error)
	Document(index int) (domain.Document, error)
	Spaces() []searchuc.SpaceInfo
	RowCount() int
}

type warmer interface {
	Warmup(ctx context.Context) error
}

// Client is the semsearch SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	models    warmer
	obs       *observer
}

// Open loads the corpus and wires one embedder per registered space.
// The provided context bounds the corpus load and the cache readiness check.
func Open(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{abstractBudget: present.AbstractBudget}
	for _, o := range opts {
		o.apply(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	docs, err := corpus.Load(ctx, cfg.sources())
	if err != nil {
		return nil, fmt.Errorf("semsearch: %w", err)
	}

	var store db.Store
	if cfg.redisAddr != "" {
		if store, err = connectCache(ctx, cfg); err != nil {
			return nil, err
		}
	}

	c := wireClient(docs, store, cfg, obs)
	if cfg.warmup {
		if err := c.Warmup(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (cfg *clientConfig) validate() error {
	if cfg.documents == "" {
		return errors.New("semsearch: documents path required (use WithDocuments)")
	}
	if len(cfg.spaces) == 0 {
		return errors.New("semsearch: Deep and Fast spaces required (use WithSpace)")
	}
	for space, sc := range cfg.spaces {
		if !space.IsValid() {
			return fmt.Errorf("semsearch: %w: unknown space %d", ErrInvalidInput, int(space))
		}
		if sc.matrix == "" {
			return fmt.Errorf("semsearch: space %s: matrix path required", space)
		}
		if sc.embedder == nil {
			return fmt.Errorf("semsearch: space %s: embedder required", space)
		}
	}
	for _, space := range domain.AllSpaces {
		if _, ok := cfg.spaces[space]; !ok {
			return fmt.Errorf("semsearch: space %s required (use WithSpace)", space)
		}
	}
	return nil
}

func (cfg *clientConfig) sources() corpus.Sources {
	cols := corpus.DefaultColumns
	if cfg.columns != nil {
		cols = corpus.Columns(*cfg.columns)
	}
	src := corpus.Sources{
		Documents: corpus.DocumentSource{
			Path:    cfg.documents,
			Format:  strings.ToLower(cfg.format),
			Columns: cols,
		},
		Matrices: make(map[domain.Space]corpus.MatrixSource, len(cfg.spaces)),
	}
	for space, sc := range cfg.spaces {
		fallback := domain.Manifest{Model: sc.model, Normalized: sc.normalized}
		if space.UsesInstruction() {
			fallback.Instruction = sc.instruction
			fallback.TemplateVersion = sc.templateVersion
			if fallback.TemplateVersion == "" {
				fallback.TemplateVersion = domain.TemplateInstructorV1
			}
		}
		src.Matrices[space] = corpus.MatrixSource{
			Path:                    sc.matrix,
			ManifestPath:            sc.manifest,
			Fallback:                fallback,
			ExpectedTemplateVersion: sc.templateVersion,
		}
	}
	return src
}

func connectCache(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    []string{cfg.redisAddr},
		Password: cfg.redisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("semsearch: create redis store: %w", err)
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("semsearch: redis not ready: %w", err)
	}
	return s, nil
}

func wireClient(docs *corpus.Store, store db.Store, cfg *clientConfig, obs *observer) *Client {
	logger := zap.NewNop()

	loaders := make(map[domain.Space]embeddinguc.Loader, len(cfg.spaces))
	for space, sc := range cfg.spaces {
		man := docs.Manifest(space)
		var emb domain.Embedder = &embedderAdapter{inner: sc.embedder}
		if store != nil {
			scope := embcache.Scope{Space: space, Model: man.Model, TemplateVersion: man.TemplateVersion}
			emb = embcache.New(emb, store, scope, cfg.cacheTTL, metrics.EmbeddingCacheTotal, logger)
		}
		loaders[space] = func(context.Context) (domain.Embedder, error) { return emb, nil }
	}

	provider := embeddinguc.NewProvider(docs, loaders, logger)
	searchSvc := searchuc.New(docs, provider, searchuc.WithAbstractBudget(cfg.abstractBudget))

	var healthOpts []healthuc.Option
	if store != nil {
		healthOpts = append(healthOpts, healthuc.WithCache(store))
	}

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(docs, provider, healthOpts...),
		models:    provider,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks cache connectivity. Without a cache it always succeeds.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store == nil {
		return nil
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Warmup prepares every space's embedder and waits for all of them.
func (c *Client) Warmup(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("warmup", start, err) }()

	if err = c.models.Warmup(ctx); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	return nil
}

// Search returns the k documents closest to query in the given space, best first.
// Ties keep corpus order.
func (c *Client) Search(ctx context.Context, space Space, query string, k int) (_ SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	resp, err := c.searchSvc.Search(ctx, space, query, k)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search: %w", err)
	}
	return toSearchResponse(resp), nil
}

// Explain returns the simulated per-word chart for query. It is decorative only.
func (c *Client) Explain(query string) (_ []TokenWeight, err error) {
	start := time.Now()
	defer func() { c.obs.observe("explain", start, err) }()

	chart, err := c.searchSvc.Explain(query)
	if err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	return toTokenWeights(chart), nil
}

// Document returns the full record at index.
func (c *Client) Document(index int) (_ Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("document", start, err) }()

	doc, err := c.searchSvc.Document(index)
	if err != nil {
		return Document{}, fmt.Errorf("document: %w", err)
	}
	return toDocument(index, doc), nil
}

// Documents returns up to limit records starting at offset, in corpus order.
func (c *Client) Documents(offset, limit int) (_ []Document, err error) {
	start := time.Now()
	defer func() { c.obs.observe("documents", start, err) }()

	if offset < 0 || limit < 0 {
		err = fmt.Errorf("documents: %w: offset and limit must not be negative", ErrInvalidInput)
		return nil, err
	}
	end := min(offset+limit, c.searchSvc.RowCount())
	out := make([]Document, 0, max(end-offset, 0))
	for i := offset; i < end; i++ {
		doc, derr := c.searchSvc.Document(i)
		if derr != nil {
			err = fmt.Errorf("documents: %w", derr)
			return nil, err
		}
		out = append(out, toDocument(i, doc))
	}
	return out, nil
}

// Len returns the number of documents in the corpus.
func (c *Client) Len() int {
	return c.searchSvc.RowCount()
}

// Spaces describes the registered spaces in display order.
func (c *Client) Spaces() []SpaceInfo {
	infos := c.searchSvc.Spaces()
	out := make([]SpaceInfo, len(infos))
	for i, s := range infos {
		out[i] = toSpaceInfo(s)
	}
	return out
}
