// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package docrag defines the public interface for docrag, which indexes the
// struct documentation of a Rust project and its dependencies for
// semantic search.
package docrag

import (
	"context"
	"errors"

	"github.com/petar-djukic/docrag/internal/embed"
	"github.com/petar-djukic/docrag/internal/pipeline"
	"github.com/petar-djukic/docrag/internal/store"
)

// Error types for the Docrag API.
var (
	ErrInvalidConfig    = errors.New("invalid config")
	ErrEmbeddingFailure = embed.ErrEmbeddingFailure
	ErrStoreFailure     = store.ErrStoreFailure
	ErrNotIndexed       = pipeline.ErrNotIndexed
)

// Embedding providers.
const (
	ProviderOllama  = "ollama"
	ProviderBedrock = "bedrock"
)

// Vector store backends.
const (
	StoreWeaviate = "weaviate"
	StoreMemory   = "memory"
)

// Config configures a Docrag instance.
type Config struct {
	JSONsDir      string         // Directory of rustdoc JSON files (default ./jsons)
	OutDir        string         // Output directory for rendered documents (default ./out)
	Project       string         // Primary unit name; reads JSONsDir/<Project>.json (default bevy)
	Embedding     string         // Embedding model (default depends on provider)
	EmbedProvider string         // ollama or bedrock (default ollama)
	OllamaURL     string         // Ollama server URL (empty = langchaingo default)
	Region        string         // AWS region (required for bedrock)
	Profile       string         // AWS credential profile (optional)
	Distance      store.Distance // Vector metric (default squared-l2)
	Store         string         // weaviate or memory (default weaviate)
	WeaviateURL   string         // Weaviate server URL (default http://localhost:8080)
	CacheDir      string         // Embedding cache directory (empty = no cache)
	Concurrency   int            // Parallel embedding requests (default 4)
	MaxChars      int            // Clip documents to this many characters before embedding (0 = no limit)
	QualifyNames  bool           // Name documents Unit::Name instead of Name
	Recompute     bool           // Rebuild the collection even if it exists
}

// IndexResult holds the outcome of Docrag.Index.
type IndexResult struct {
	Collection string // Collection the documents were stored in
	Structs    int    // Structs emitted by the walk
	Documents  int    // Documents embedded and stored
	Skipped    bool   // The collection already existed and Recompute was off
}

// RenderResult holds the outcome of Docrag.Render.
type RenderResult struct {
	Files         int // Documents written, overwrites included
	Visited       int // Distinct symbols visited
	RootFallbacks int // Symbols resolved to their unit's root
	UnitsEntered  int // Re-exports that entered a dependency
}

// Result is one query hit.
type Result struct {
	Name     string  // Document name without extension
	Distance float32 // Smaller is closer
}

// Docrag renders, indexes and searches struct documentation.
type Docrag interface {
	// Render walks the project and writes one markdown document per
	// reachable struct. It needs neither the embedder nor the store.
	Render(ctx context.Context) (*RenderResult, error)

	// Index renders, embeds and stores the documents, unless the
	// collection already exists and Recompute is off.
	Index(ctx context.Context) (*IndexResult, error)

	// Query returns the n documents nearest to text.
	Query(ctx context.Context, text string, n int) ([]Result, error)

	// Close releases the embedding cache, if any.
	Close() error
}
