// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package embed turns document text into vectors.
package embed

import (
	"context"
	"errors"
)

// ErrEmbeddingFailure indicates the embedding backend failed (network,
// auth, rate limit, or a malformed response).
var ErrEmbeddingFailure = errors.New("embedding failure")

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// One embeds a single text.
func One(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errCount(1, len(vecs))
	}
	return vecs[0], nil
}
