// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	json "github.com/goccy/go-json"
)

const (
	defaultTimeout   = 60 * time.Second
	maxRetryAttempts = 3
	baseRetryDelay   = 1 * time.Second

	// DefaultBedrockModel is the Titan text embedding model.
	DefaultBedrockModel = "amazon.titan-embed-text-v2:0"
)

// ClientConfig configures the Bedrock embedding client.
type ClientConfig struct {
	ModelID    string        // Bedrock model ID (default DefaultBedrockModel)
	Region     string        // AWS region (required)
	Profile    string        // AWS credential profile (optional, uses default chain if empty)
	Timeout    time.Duration // Per-request timeout (default 60s)
	Dimensions int           // Output dimensions for models that accept it (0 leaves the model default)
}

// BedrockAPI abstracts the Bedrock InvokeModel call for testing.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock embeds with an Amazon Titan text embedding model.
type Bedrock struct {
	api        BedrockAPI
	modelID    string
	timeout    time.Duration
	dimensions int
	retryDelay time.Duration

	inputTokens atomic.Int64 // Cumulative input tokens across calls
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewBedrock creates a Bedrock embedder using the standard AWS credential
// chain.
func NewBedrock(ctx context.Context, cfg ClientConfig) (*Bedrock, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: region is required", ErrEmbeddingFailure)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrEmbeddingFailure, err)
	}

	return NewBedrockWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewBedrockWithAPI creates an embedder with a pre-configured API
// implementation. Used for testing with mock clients.
func NewBedrockWithAPI(api BedrockAPI, cfg ClientConfig) *Bedrock {
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = DefaultBedrockModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Bedrock{
		api:        api,
		modelID:    modelID,
		timeout:    timeout,
		dimensions: cfg.Dimensions,
		retryDelay: baseRetryDelay,
	}
}

// Model returns the Bedrock model ID.
func (b *Bedrock) Model() string { return b.modelID }

// InputTokens returns the total input tokens reported across all calls.
func (b *Bedrock) InputTokens() int64 { return b.inputTokens.Load() }

// Embed calls the model once per text; Titan accepts a single input per
// request.
func (b *Bedrock) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := b.embedWithRetry(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// embedWithRetry calls InvokeModel with exponential backoff on throttling.
func (b *Bedrock) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{InputText: text, Dimensions: b.dimensions})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrEmbeddingFailure, err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := b.retryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: context cancelled during retry: %v", ErrEmbeddingFailure, ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		output, err := b.api.InvokeModel(callCtx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(b.modelID),
			Body:        body,
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
		})
		cancel()
		if err != nil {
			var throttle *brtypes.ThrottlingException
			if errors.As(err, &throttle) {
				lastErr = err
				continue
			}
			return nil, b.classifyError(err)
		}

		var resp titanResponse
		if err := json.Unmarshal(output.Body, &resp); err != nil {
			return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailure, err)
		}
		if len(resp.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding from %s", ErrEmbeddingFailure, b.modelID)
		}
		b.inputTokens.Add(int64(resp.InputTextTokenCount))
		return resp.Embedding, nil
	}

	return nil, fmt.Errorf("%w: rate limited after %d retries: %v", ErrEmbeddingFailure, maxRetryAttempts, lastErr)
}

// classifyError wraps Bedrock errors into ErrEmbeddingFailure with
// descriptive messages.
func (b *Bedrock) classifyError(err error) error {
	var accessDenied *brtypes.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return fmt.Errorf("%w: credential or permission issue: %v", ErrEmbeddingFailure, err)
	}

	var notFound *brtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: model not found: %s", ErrEmbeddingFailure, b.modelID)
	}

	var validation *brtypes.ValidationException
	if errors.As(err, &validation) {
		return fmt.Errorf("%w: request rejected by %s: %v", ErrEmbeddingFailure, b.modelID, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out after %s", ErrEmbeddingFailure, b.timeout)
	}

	return fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
}
