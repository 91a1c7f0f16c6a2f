// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pipeline wires loading, walking, rendering, embedding and the
// vector store into the index and query operations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/petar-djukic/docrag/internal/embed"
	"github.com/petar-djukic/docrag/internal/interchange"
	"github.com/petar-djukic/docrag/internal/render"
	"github.com/petar-djukic/docrag/internal/store"
	"github.com/petar-djukic/docrag/internal/walker"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	embedBatchSize     = 16
	progressEvery      = 100
)

// ErrNotIndexed is returned by Query when the collection does not exist.
var ErrNotIndexed = errors.New("collection not indexed")

// Deps holds injected dependencies for the runner.
type Deps struct {
	Embedder    embed.Embedder // Required for Index and Query
	Store       store.Store    // Required for Index and Query
	JSONsDir    string         // Directory of interchange files
	OutDir      string         // Rendered documents go to OutDir/structs
	Project     string         // Primary unit name
	Qualify     bool           // Name documents Unit::Name
	Concurrency int            // Parallel embedding requests (default 4)
	MaxChars    int            // Clip documents before embedding (0 = no limit)
	Recompute   bool           // Rebuild even if the collection exists
}

// RenderResult holds the outcome of a walk-and-render pass.
type RenderResult struct {
	Files int // Files written, overwrites included
	Stats *walker.Stats
}

// IndexResult holds the outcome of Runner.Index.
type IndexResult struct {
	Structs   int  // Structs emitted by the walk
	Documents int  // Distinct documents embedded and stored
	Skipped   bool // The collection already existed
	Stats     *walker.Stats
}

// Result is one query hit.
type Result struct {
	Name     string
	Distance float32
}

// Runner runs the pipeline.
type Runner struct {
	deps Deps
}

// NewRunner creates a Runner with the given dependencies.
func NewRunner(deps Deps) *Runner {
	if deps.Concurrency <= 0 {
		deps.Concurrency = defaultConcurrency
	}
	return &Runner{deps: deps}
}

// Render loads the interchange files, walks the primary unit and writes
// one document per struct. Documents left by an earlier run are removed
// first.
func (r *Runner) Render(ctx context.Context) (*RenderResult, error) {
	log := slogctx.FromCtx(ctx)

	cat, err := interchange.Load(ctx, r.deps.JSONsDir, r.deps.Project)
	if err != nil {
		return nil, err
	}
	log.Info("catalog loaded",
		slog.String("project", r.deps.Project),
		slog.Int("units", len(cat.Loaded())),
		slog.Int("declared", len(cat.Primary().Table.ExternalUnits)))

	structsDir := filepath.Join(r.deps.OutDir, render.StructsDir)
	if err := os.RemoveAll(structsDir); err != nil {
		return nil, fmt.Errorf("clearing %s: %w", structsDir, err)
	}

	emitter := &render.FileEmitter{Dir: r.deps.OutDir, Qualify: r.deps.Qualify}
	stats, err := walker.New(cat, emitter).Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", r.deps.Project, err)
	}
	log.Info("documents rendered",
		slog.Int("structs", stats.Emitted),
		slog.Int("visited", stats.Visited),
		slog.String("dir", structsDir))

	return &RenderResult{Files: emitter.Written(), Stats: stats}, nil
}

// Index renders, embeds and stores every document, unless the collection
// already exists and Recompute is off.
func (r *Runner) Index(ctx context.Context) (*IndexResult, error) {
	log := slogctx.FromCtx(ctx)

	exists, err := r.deps.Store.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists && !r.deps.Recompute {
		log.Info("collection exists, skipping indexing")
		return &IndexResult{Skipped: true}, nil
	}
	if exists {
		if err := r.deps.Store.Reset(ctx); err != nil {
			return nil, err
		}
	}

	rendered, err := r.Render(ctx)
	if err != nil {
		return nil, err
	}

	var docs []render.Document
	if rendered.Files > 0 {
		docs, err = render.ReadDocuments(r.deps.OutDir)
		if err != nil {
			return nil, err
		}
	}

	records, err := r.embedAll(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := r.deps.Store.Upsert(ctx, records); err != nil {
		return nil, err
	}
	log.Info("collection indexed", slog.Int("documents", len(records)))

	return &IndexResult{
		Structs:   rendered.Stats.Emitted,
		Documents: len(records),
		Stats:     rendered.Stats,
	}, nil
}

// embedAll embeds docs in batches, Concurrency batches at a time. The
// returned records are in docs order.
func (r *Runner) embedAll(ctx context.Context, docs []render.Document) ([]store.Record, error) {
	log := slogctx.FromCtx(ctx)
	records := make([]store.Record, len(docs))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.deps.Concurrency)
	for start := 0; start < len(docs); start += embedBatchSize {
		end := min(start+embedBatchSize, len(docs))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i, d := range docs[start:end] {
				text, err := embed.Clip(d.Text, r.deps.MaxChars)
				if err != nil {
					return fmt.Errorf("%s: %w", d.Key, err)
				}
				texts[i] = text
			}

			vecs, err := r.deps.Embedder.Embed(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("%w: got %d vectors for %d documents", embed.ErrEmbeddingFailure, len(vecs), len(texts))
			}
			for i, d := range docs[start:end] {
				records[start+i] = store.Record{Key: d.Key, Content: d.Text, Vector: vecs[i]}
			}

			before := done.Load()
			after := done.Add(int64(end - start))
			if after/progressEvery != before/progressEvery {
				log.Info("entries processed", slog.Int64("done", after), slog.Int("total", len(docs)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// Query embeds text and returns the n closest documents, closest first.
func (r *Runner) Query(ctx context.Context, text string, n int) ([]Result, error) {
	exists, err := r.deps.Store.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: run index first", ErrNotIndexed)
	}

	vec, err := embed.One(ctx, r.deps.Embedder, text)
	if err != nil {
		return nil, err
	}
	matches, err := r.deps.Store.Search(ctx, vec, n)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{Name: render.TrimKey(m.Key), Distance: m.Distance}
	}
	return results, nil
}
