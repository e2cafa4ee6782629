package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	"github.com/kailas-cloud/semsearch/internal/corpus"
	"github.com/kailas-cloud/semsearch/internal/db"
	dbRedis "github.com/kailas-cloud/semsearch/internal/db/redis"
	"github.com/kailas-cloud/semsearch/internal/domain"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/metrics"
	"github.com/kailas-cloud/semsearch/internal/repository/embcache"
	onnxEmb "github.com/kailas-cloud/semsearch/internal/transport/onnx"
	openaiEmb "github.com/kailas-cloud/semsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/semsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/semsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// app is the composition root shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	corpus   *corpus.Store
	provider *embeddinguc.Provider
	search   *searchuc.Service
	health   *healthuc.Service

	mu      sync.Mutex
	closers []func()
}

// buildApp loads the corpus and wires the embedder chain of every space.
// A corpus that fails to load is fatal: nothing can be served without it.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) *app {
	ctx = logpkg.ContextWithLogger(ctx, logger)
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	spaces, err := configuredSpaces(cfg)
	if err != nil {
		logger.Fatal("Invalid space configuration", zap.Error(err))
	}

	store, err := corpus.Load(ctx, corpusSources(cfg, spaces))
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	metrics.CorpusDocuments.Set(float64(store.RowCount()))
	for space := range spaces {
		metrics.CorpusDimensions.WithLabelValues(space.String()).Set(float64(store.Manifest(space).Dimensions))
	}
	logger.Info("Corpus loaded",
		zap.Int("documents", store.RowCount()),
		zap.String("path", cfg.Corpus.Path),
	)

	a := &app{cfg: cfg, logger: logger, corpus: store}

	var cache db.Store
	if cfg.Cache.Enabled {
		cache = a.connectCache(ctx)
	}

	var healthOpts []healthuc.Option
	if cache != nil {
		healthOpts = append(healthOpts, healthuc.WithCache(cache))
	}

	loaders := make(map[domain.Space]embeddinguc.Loader, len(spaces))
	for space, sc := range spaces {
		man := store.Manifest(space)
		base, hc := a.baseLoader(space, sc, man)
		if hc != nil {
			healthOpts = append(healthOpts, healthuc.WithBackend(space.String(), hc))
		}
		loaders[space] = a.decorate(base, space, man, cache)
	}

	a.provider = embeddinguc.NewProvider(store, loaders, logger)
	a.search = searchuc.New(store, a.provider, searchuc.WithAbstractBudget(cfg.Search.AbstractBudget))
	a.health = healthuc.New(store, a.provider, healthOpts...)
	return a
}

// warmup preloads every model when configured. Failures leave the space unavailable.
func (a *app) warmup(ctx context.Context) {
	if !a.cfg.Models.Warmup {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Models.WarmupTimeout)*time.Second)
	defer cancel()

	start := time.Now()
	if err := a.provider.Warmup(ctx); err != nil {
		a.logger.Error("Model warmup incomplete", zap.Error(err))
		return
	}
	a.logger.Info("Models ready", zap.Duration("elapsed", time.Since(start)))
}

// onClose registers a release hook. Loaders call it from their own goroutine.
func (a *app) onClose(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	if err := onnxEmb.ShutdownRuntime(); err != nil {
		a.logger.Warn("ONNX runtime shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) connectCache(ctx context.Context) db.Store {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    a.cfg.Cache.Addrs,
		Username: a.cfg.Cache.Username,
		Password: a.cfg.Cache.Password,
		DB:       a.cfg.Cache.DB,
	})
	if err != nil {
		a.logger.Error("Query cache disabled", zap.Error(err))
		return nil
	}
	timeout := time.Duration(a.cfg.Cache.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		a.logger.Error("Query cache not ready, continuing without it", zap.Error(err))
		store.Close()
		return nil
	}
	a.onClose(store.Close)
	a.logger.Info("Connected to query cache", zap.Strings("addrs", a.cfg.Cache.Addrs))
	return store
}

// baseLoader returns the loader of the raw model and, for remote backends, its health checker.
func (a *app) baseLoader(
	space domain.Space, sc config.SpaceConfig, man domain.Manifest,
) (embeddinguc.Loader, domain.HealthChecker) {
	switch sc.Backend {
	case config.BackendOpenAI:
		model := sc.OpenAI.Model
		emb := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     sc.OpenAI.APIKey,
			BaseURL:    sc.OpenAI.BaseURL,
			Model:      model,
			Dimensions: sc.OpenAI.Dimensions,
			Logger:     a.logger.With(zap.Stringer("space", space)),
		})
		return func(context.Context) (domain.Embedder, error) { return emb, nil }, emb
	default:
		cfg := onnxEmb.Config{
			LibraryPath:   a.cfg.Models.ONNXLibraryPath,
			ModelPath:     sc.ONNX.ModelPath,
			TokenizerPath: sc.ONNX.TokenizerPath,
			MaxSeqLen:     sc.ONNX.MaxSeqLen,
			OutputName:    sc.ONNX.OutputName,
			OutputKind:    sc.ONNX.OutputKind,
			TokenTypeIDs:  sc.ONNX.TokenTypeIDs,
			Normalize:     sc.ONNX.Normalize || man.Normalized,
		}
		logger := a.logger.With(zap.Stringer("space", space))
		return func(context.Context) (domain.Embedder, error) {
			enc, err := onnxEmb.NewEncoder(cfg, logger)
			if err != nil {
				return nil, fmt.Errorf("onnx encoder: %w", err)
			}
			a.onClose(func() {
				if err := enc.Close(); err != nil {
					logger.Warn("Failed to close ONNX encoder", zap.Error(err))
				}
			})
			return enc, nil
		}, nil
	}
}

// decorate assembles the chain: model -> Instrumented -> Cached. The provider adds the
// instruction template on top, so cache keys are computed over the instructed text.
func (a *app) decorate(base embeddinguc.Loader, space domain.Space, man domain.Manifest, cache db.Store) embeddinguc.Loader {
	return func(ctx context.Context) (domain.Embedder, error) {
		emb, err := base(ctx)
		if err != nil {
			return nil, err
		}
		var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(emb, space, man.Model, a.logger)
		if cache != nil {
			scope := embcache.Scope{Space: space, Model: man.Model, TemplateVersion: man.TemplateVersion}
			ttl := time.Duration(a.cfg.Cache.TTLSec) * time.Second
			embedder = embcache.New(embedder, cache, scope, ttl, metrics.EmbeddingCacheTotal, a.logger)
		}
		return embedder, nil
	}
}

func configuredSpaces(cfg config.Config) (map[domain.Space]config.SpaceConfig, error) {
	out := make(map[domain.Space]config.SpaceConfig, len(cfg.Spaces))
	for name, sc := range cfg.Spaces {
		space, err := domain.ParseSpace(name)
		if err != nil {
			return nil, fmt.Errorf("spaces.%s: %w", name, err)
		}
		if _, dup := out[space]; dup {
			return nil, errors.New("space " + space.String() + " configured twice")
		}
		out[space] = sc
	}
	return out, nil
}

func corpusSources(cfg config.Config, spaces map[domain.Space]config.SpaceConfig) corpus.Sources {
	src := corpus.Sources{
		Documents: corpus.DocumentSource{
			Path:   cfg.Corpus.Path,
			Format: strings.ToLower(cfg.Corpus.Format),
			Columns: corpus.Columns{
				Title:    cfg.Corpus.Columns.Title,
				Author:   cfg.Corpus.Columns.Author,
				Subject:  cfg.Corpus.Columns.Subject,
				Date:     cfg.Corpus.Columns.Date,
				Abstract: cfg.Corpus.Columns.Abstract,
			},
		},
		Matrices: make(map[domain.Space]corpus.MatrixSource, len(spaces)),
	}
	if src.Documents.Columns == (corpus.Columns{}) {
		src.Documents.Columns = corpus.DefaultColumns
	}

	for space, sc := range spaces {
		fallback := domain.Manifest{
			Model:      sc.Model,
			Normalized: sc.Normalized,
		}
		if space.UsesInstruction() {
			fallback.Instruction = sc.Instruction
			fallback.TemplateVersion = sc.TemplateVersion
			if fallback.TemplateVersion == "" {
				fallback.TemplateVersion = domain.TemplateInstructorV1
			}
		}
		src.Matrices[space] = corpus.MatrixSource{
			Path:                    sc.Matrix,
			ManifestPath:            sc.Manifest,
			Fallback:                fallback,
			ExpectedTemplateVersion: sc.TemplateVersion,
		}
	}
	return src
}
