// Package app assembles the assistant from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sweetpotato0/govassist/config"
	"github.com/sweetpotato0/govassist/contrib/embedder/cache"
	embedopenai "github.com/sweetpotato0/govassist/contrib/embedder/openai"
	"github.com/sweetpotato0/govassist/contrib/provider/claude"
	"github.com/sweetpotato0/govassist/contrib/provider/openai"
	"github.com/sweetpotato0/govassist/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/govassist/contrib/vector/inmemory"
	"github.com/sweetpotato0/govassist/contrib/vector/pg"
	errorskg "github.com/sweetpotato0/govassist/errors"
	"github.com/sweetpotato0/govassist/pkg/logging"
	"github.com/sweetpotato0/govassist/pkg/metrics"
	"github.com/sweetpotato0/govassist/pkg/telemetry"
	"github.com/sweetpotato0/govassist/prompt"
	"github.com/sweetpotato0/govassist/provider"
	"github.com/sweetpotato0/govassist/rag/advisor"
	"github.com/sweetpotato0/govassist/rag/pipeline"
	"github.com/sweetpotato0/govassist/rag/retriever"
	"github.com/sweetpotato0/govassist/rag/rewrite"
	"github.com/sweetpotato0/govassist/rag/router"
	"github.com/sweetpotato0/govassist/rag/synthesizer"
	"github.com/sweetpotato0/govassist/rag/tokenizer"
	"github.com/sweetpotato0/govassist/rag/translate"
	"github.com/sweetpotato0/govassist/service"
	"github.com/sweetpotato0/govassist/vector"
)

// Option overrides a backend, mainly for tests.
type Option func(*options)

type options struct {
	embedder  vector.Embedder
	generator provider.Generator
}

// WithEmbedder replaces the configured embedding client.
func WithEmbedder(e vector.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithGenerator replaces the configured chat backend. Model fallback still
// runs through provider.Chain.
func WithGenerator(g provider.Generator) Option {
	return func(o *options) { o.generator = g }
}

// App is a fully wired assistant.
type App struct {
	Config    *config.Config
	Pipeline  *pipeline.Pipeline
	Retriever *retriever.Retriever
	Metrics   *metrics.Metrics

	closers []func() error
	logger  *slog.Logger
}

// New builds every component named by cfg. Services without a collection are
// skipped; at least one must load.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		logger:  logging.WithComponent("app"),
	}

	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	emb := o.embedder
	if emb == nil {
		var closeEmb func() error
		if emb, closeEmb, err = NewEmbedder(cfg); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeEmb)
	}

	collections, closeStores, err := OpenCollections(ctx, cfg, service.All(), emb.Dimension(), false)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStores)
	if len(collections) == 0 {
		return nil, fmt.Errorf("%w: no service collection could be loaded from the %s index", errorskg.ErrNotFound, cfg.Index.Backend)
	}

	descriptions := make(map[service.ID]string, len(collections))
	for id := range collections {
		descriptions[id] = service.Descriptions[id]
	}
	rt, routeErr := router.New(ctx, emb, descriptions, router.WithEmbedTimeout(cfg.Embedding.Timeout))
	if routeErr != nil {
		// The router still honours explicit service choices.
		a.logger.Warn("service routing disabled", "error", routeErr)
	}

	a.Retriever = retriever.New(emb, collections,
		retriever.WithDefaultTopK(cfg.Pipeline.DefaultTopK),
		retriever.WithEmbedTimeout(cfg.Embedding.Timeout),
	)

	gen := o.generator
	if gen == nil {
		gen = NewGenerator(cfg.Generation)
	}
	synthChain, err := a.chain(gen, provider.SynthesisPolicy)
	if err != nil {
		return nil, err
	}
	helperChain, err := a.chain(gen, provider.LenientPolicy)
	if err != nil {
		return nil, err
	}

	tok, err := NewTokenizer(cfg.Pipeline.Tokenizer)
	if err != nil {
		return nil, err
	}

	scorer := advisor.Scorer(advisor.DefaultModel())
	if cfg.Advisor.ModelPath != "" {
		m, loadErr := advisor.LoadModel(cfg.Advisor.ModelPath)
		if loadErr != nil {
			return nil, loadErr
		}
		scorer = m
	}

	prompts := prompt.Defaults()
	pipeOpts := []pipeline.Option{
		pipeline.WithTopK(cfg.Pipeline.DefaultTopK, cfg.Pipeline.MaxTopK),
		pipeline.WithMetrics(a.Metrics),
	}
	if cfg.Telemetry.Enabled {
		pipeOpts = append(pipeOpts, pipeline.WithTracer(telemetry.Tracer()))
	}
	a.Pipeline, err = pipeline.New(pipeline.Components{
		Translator: translate.New(helperChain, prompts),
		Rewriter:   rewrite.New(helperChain, prompts),
		Router:     rt,
		Retriever:  a.Retriever,
		Synthesizer: synthesizer.New(synthChain,
			synthesizer.WithPrompts(prompts),
			synthesizer.WithPassageBudget(tok, cfg.Pipeline.PassageTokens),
		),
		Advisor: advisor.New(scorer),
	}, pipeOpts...)
	if err != nil {
		return nil, err
	}

	a.logger.Info("assistant ready",
		"services", a.Retriever.Services(),
		"models", cfg.Generation.Models,
		"provider", cfg.Generation.Provider,
		"index", cfg.Index.Backend,
	)
	return a, nil
}

// Close releases database and cache connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if c != nil {
			errs = append(errs, c())
		}
	}
	return errors.Join(errs...)
}

func (a *App) chain(gen provider.Generator, policy provider.Policy) (*provider.Chain, error) {
	g := a.Config.Generation
	wait := provider.ConstantBackOff(g.Wait)
	if g.Backoff == "exponential" {
		wait = provider.ExponentialBackOff(g.Wait, g.MaxWait)
	}
	return provider.NewChain(gen, g.Models,
		provider.WithPolicy(policy),
		provider.WithAttemptTimeout(g.AttemptTimeout),
		provider.WithBackOff(wait),
		provider.WithObserver(a.Metrics.ProviderObserver()),
	)
}

// NewGenerator returns the chat backend selected by cfg.Provider.
func NewGenerator(cfg config.GenerationConfig) provider.Generator {
	switch cfg.Provider {
	case "claude":
		c := claude.DefaultConfig(cfg.APIKey, cfg.BaseURL)
		c.MaxTokens = int64(cfg.MaxTokens)
		c.Temperature = cfg.Temperature
		return claude.New(c)
	default:
		c := openai.DefaultConfig().WithAPIKey(cfg.APIKey).WithBaseURL(cfg.BaseURL)
		c.Referer = cfg.Referer
		c.Title = cfg.Title
		c.MaxTokens = int64(cfg.MaxTokens)
		c.Temperature = cfg.Temperature
		return openai.New(c)
	}
}

// NewEmbedder returns the embedding client, behind the Redis cache when
// enabled. The returned func closes the cache connection.
func NewEmbedder(cfg *config.Config) (vector.Embedder, func() error, error) {
	emb, err := embedopenai.New(embedopenai.Config{
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("embedding client: %w", err)
	}
	if !cfg.Redis.Enabled {
		return emb, func() error { return nil }, nil
	}
	cached := cache.New(emb, &cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.Redis.TTL,
	})
	return cached, cached.Close, nil
}

// NewTokenizer returns the word tokenizer for "simple" and a tiktoken
// encoding for anything else.
func NewTokenizer(name string) (tokenizer.Tokenizer, error) {
	if name == "" || strings.EqualFold(name, "simple") {
		return tokenizer.NewSimpleTokenizer(), nil
	}
	tok, err := tiktoken.New(name)
	if err != nil {
		return nil, fmt.Errorf("tokenizer %s: %w", name, err)
	}
	return tok, nil
}

// IndexPath is the file holding svc's collection under dir.
func IndexPath(dir string, svc service.ID) string {
	return filepath.Join(dir, svc.String()+".json")
}

// OpenCollections binds one store per service. With the file backend a
// missing index file skips the service, unless create is set, in which case
// an empty store is returned for it. With postgres, create also runs Setup.
func OpenCollections(ctx context.Context, cfg *config.Config, services []service.ID, dimension int, create bool) (map[service.ID]vector.VectorStore, func() error, error) {
	logger := logging.WithComponent("app")
	out := make(map[service.ID]vector.VectorStore, len(services))

	switch cfg.Index.Backend {
	case "postgres":
		db, err := pg.Open(ctx, &pg.PGVectorConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		for _, svc := range services {
			store, err := bindTable(ctx, db, cfg.Index.TablePrefix+svc.String(), dimension, create)
			if err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("collection %s: %w", svc, err)
			}
			out[svc] = store
		}
		return out, db.Close, nil

	default:
		for _, svc := range services {
			path := IndexPath(cfg.Index.Dir, svc)
			store, file, err := inmemory.Load(path)
			switch {
			case errors.Is(err, errorskg.ErrNotFound) && create:
				out[svc] = inmemory.New(dimension)
			case errors.Is(err, errorskg.ErrNotFound):
				logger.Warn("no index for service, skipping", "service", svc, "path", path)
			case err != nil:
				return nil, nil, err
			case file.Dimension != dimension:
				return nil, nil, fmt.Errorf("index %s has dimension %d, embedder produces %d", path, file.Dimension, dimension)
			default:
				out[svc] = store
			}
		}
		return out, func() error { return nil }, nil
	}
}

func bindTable(ctx context.Context, db *sql.DB, table string, dimension int, create bool) (*pg.PGVectorStore, error) {
	store, err := pg.NewWithDB(db, table, dimension)
	if err != nil {
		return nil, err
	}
	if create {
		if err := store.Setup(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}
