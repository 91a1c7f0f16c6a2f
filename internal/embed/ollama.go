// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package embed

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultOllamaModel is the embedding model used when none is configured.
const DefaultOllamaModel = "nomic-embed-text:latest"

// OllamaAPI abstracts the langchaingo Ollama embedding call for testing.
type OllamaAPI interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// Ollama embeds through a local Ollama server.
type Ollama struct {
	api   OllamaAPI
	model string
}

// NewOllama connects to the Ollama server at serverURL, or the langchaingo
// default when serverURL is empty.
func NewOllama(model, serverURL string) (*Ollama, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating ollama client: %v", ErrEmbeddingFailure, err)
	}
	return &Ollama{api: llm, model: model}, nil
}

// NewOllamaWithAPI creates an embedder over a pre-configured API.
func NewOllamaWithAPI(api OllamaAPI, model string) *Ollama {
	return &Ollama{api: api, model: model}
}

// Model returns the model name.
func (o *Ollama) Model() string { return o.model }

// Embed sends all texts in one request.
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := o.api.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama %s (is Ollama running?): %v", ErrEmbeddingFailure, o.model, err)
	}
	if len(vecs) != len(texts) {
		return nil, errCount(len(texts), len(vecs))
	}
	return vecs, nil
}

func errCount(want, got int) error {
	return fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailure, got, want)
}
