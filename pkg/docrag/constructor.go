// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package docrag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/petar-djukic/docrag/internal/embed"
	"github.com/petar-djukic/docrag/internal/pipeline"
	"github.com/petar-djukic/docrag/internal/store"
)

const (
	defaultJSONsDir     = "./jsons"
	defaultOutDir       = "./out"
	defaultProject      = "bevy"
	defaultWeaviateURL  = "http://localhost:8080"
	defaultConcurrency  = 4
	defaultEmbedTimeout = time.Minute
)

// New validates the config, creates the embedder and the vector store, and
// returns a ready-to-use Docrag. It does not contact either backend; that
// happens on the first Index or Query.
func New(cfg Config) (Docrag, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)

	a := &docragAdapter{}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.CacheDir != "" {
		cached, err := embed.NewCached(embedder, embed.CacheConfig{
			Path:   cfg.CacheDir,
			Logger: slog.Default().With(slog.String("component", "embedding-cache")),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		a.cache = cached
		embedder = cached
	}

	a.collection = store.CollectionName(embedder.Model(), cfg.Distance, cfg.Project)
	vectors, err := newStore(cfg, a.collection)
	if err != nil {
		return nil, multierror.Append(err, a.Close()).ErrorOrNil()
	}

	a.runner = pipeline.NewRunner(pipeline.Deps{
		Embedder:    embedder,
		Store:       vectors,
		JSONsDir:    cfg.JSONsDir,
		OutDir:      cfg.OutDir,
		Project:     cfg.Project,
		Qualify:     cfg.QualifyNames,
		Concurrency: cfg.Concurrency,
		MaxChars:    cfg.MaxChars,
		Recompute:   cfg.Recompute,
	})
	return a, nil
}

func newEmbedder(cfg Config) (embed.Embedder, error) {
	switch cfg.EmbedProvider {
	case ProviderBedrock:
		return embed.NewBedrock(context.Background(), embed.ClientConfig{
			ModelID: cfg.Embedding,
			Region:  cfg.Region,
			Profile: cfg.Profile,
			Timeout: defaultEmbedTimeout,
		})
	default:
		return embed.NewOllama(cfg.Embedding, cfg.OllamaURL)
	}
}

func newStore(cfg Config, collection string) (store.Store, error) {
	if cfg.Store == StoreMemory {
		return store.NewMemory(cfg.Distance), nil
	}
	client, err := store.NewWeaviateClient(cfg.WeaviateURL)
	if err != nil {
		return nil, err
	}
	return store.NewWeaviate(client, collection, cfg.Distance), nil
}

// docragAdapter adapts internal/pipeline.Runner to the public Docrag
// interface.
type docragAdapter struct {
	runner     *pipeline.Runner
	cache      *embed.Cached
	collection string
}

func (a *docragAdapter) Render(ctx context.Context) (*RenderResult, error) {
	r, err := a.runner.Render(ctx)
	if err != nil {
		return nil, err
	}
	return &RenderResult{
		Files:         r.Files,
		Visited:       r.Stats.Visited,
		RootFallbacks: r.Stats.RootFallbacks,
		UnitsEntered:  r.Stats.UnitsEntered,
	}, nil
}

func (a *docragAdapter) Index(ctx context.Context) (*IndexResult, error) {
	r, err := a.runner.Index(ctx)
	if err != nil {
		return nil, err
	}
	return &IndexResult{
		Collection: a.collection,
		Structs:    r.Structs,
		Documents:  r.Documents,
		Skipped:    r.Skipped,
	}, nil
}

func (a *docragAdapter) Query(ctx context.Context, text string, n int) ([]Result, error) {
	rs, err := a.runner.Query(ctx, text, n)
	if err != nil {
		return nil, err
	}
	out := make([]Result, len(rs))
	for i, r := range rs {
		out[i] = Result{Name: r.Name, Distance: r.Distance}
	}
	return out, nil
}

func (a *docragAdapter) Close() error {
	var result *multierror.Error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing embedding cache: %w", err))
		}
		a.cache = nil
	}
	return result.ErrorOrNil()
}

// validateConfig checks enumerated fields and provider requirements.
func validateConfig(cfg Config) error {
	switch cfg.EmbedProvider {
	case "", ProviderOllama, ProviderBedrock:
	default:
		return fmt.Errorf("unknown embedding provider %q", cfg.EmbedProvider)
	}
	if cfg.EmbedProvider == ProviderBedrock && cfg.Region == "" {
		return fmt.Errorf("Region is required for the bedrock provider")
	}
	switch cfg.Store {
	case "", StoreWeaviate, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", cfg.Store)
	}
	if cfg.Distance != "" {
		if _, err := store.ParseDistance(string(cfg.Distance)); err != nil {
			return err
		}
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("Concurrency must not be negative")
	}
	if cfg.MaxChars < 0 {
		return fmt.Errorf("MaxChars must not be negative")
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.JSONsDir == "" {
		cfg.JSONsDir = defaultJSONsDir
	}
	if cfg.OutDir == "" {
		cfg.OutDir = defaultOutDir
	}
	if cfg.Project == "" {
		cfg.Project = defaultProject
	}
	if cfg.EmbedProvider == "" {
		cfg.EmbedProvider = ProviderOllama
	}
	if cfg.Embedding == "" {
		switch cfg.EmbedProvider {
		case ProviderBedrock:
			cfg.Embedding = embed.DefaultBedrockModel
		default:
			cfg.Embedding = embed.DefaultOllamaModel
		}
	}
	if cfg.Distance == "" {
		cfg.Distance = store.SquaredL2
	} else {
		cfg.Distance, _ = store.ParseDistance(string(cfg.Distance))
	}
	if cfg.Store == "" {
		cfg.Store = StoreWeaviate
	}
	if cfg.WeaviateURL == "" {
		cfg.WeaviateURL = defaultWeaviateURL
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaultConcurrency
	}
}
