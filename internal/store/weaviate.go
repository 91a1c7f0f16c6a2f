// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	slogctx "github.com/veqryn/slog-context"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// BatchSize is the number of objects sent per batch import.
const BatchSize = 100

// Property names of the document class.
const (
	propKey     = "key"
	propContent = "content"
)

// objectSpace namespaces object ids so that a key maps to the same object
// on every upsert.
var objectSpace = uuid.MustParse("a3d0f7e4-5c21-4b8e-8f6a-2e9b4c7d1a03")

// Weaviate stores records as objects of one class with self-provided
// vectors.
type Weaviate struct {
	client   *weaviate.Client
	class    string
	distance Distance
}

// NewWeaviateClient connects to the Weaviate server at rawURL, for example
// http://localhost:8080.
func NewWeaviateClient(rawURL string) (*weaviate.Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing weaviate url %q: %v", ErrStoreFailure, rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: weaviate url %q has no host", ErrStoreFailure, rawURL)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: u.Host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("%w: creating weaviate client: %v", ErrStoreFailure, err)
	}
	return client, nil
}

// NewWeaviate returns a store over the given class.
func NewWeaviate(client *weaviate.Client, class string, distance Distance) *Weaviate {
	return &Weaviate{client: client, class: class, distance: distance}
}

// Class returns the class name backing the store.
func (w *Weaviate) Class() string { return w.class }

func (w *Weaviate) Exists(ctx context.Context) (bool, error) {
	ok, err := w.client.Schema().ClassExistenceChecker().WithClassName(w.class).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: checking class %s (is Weaviate running?): %v", ErrStoreFailure, w.class, err)
	}
	return ok, nil
}

func (w *Weaviate) Reset(ctx context.Context) error {
	ok, err := w.Exists(ctx)
	if err != nil || !ok {
		return err
	}
	if err := w.client.Schema().ClassDeleter().WithClassName(w.class).Do(ctx); err != nil {
		return fmt.Errorf("%w: deleting class %s: %v", ErrStoreFailure, w.class, err)
	}
	slogctx.FromCtx(ctx).Info("collection dropped", slog.String("class", w.class))
	return nil
}

// EnsureSchema creates the class if it does not exist.
func (w *Weaviate) EnsureSchema(ctx context.Context) error {
	ok, err := w.Exists(ctx)
	if err != nil || ok {
		return err
	}
	if err := w.client.Schema().ClassCreator().WithClass(classSchema(w.class, w.distance)).Do(ctx); err != nil {
		return fmt.Errorf("%w: creating class %s: %v", ErrStoreFailure, w.class, err)
	}
	slogctx.FromCtx(ctx).Info("collection created",
		slog.String("class", w.class), slog.String("distance", string(w.distance)))
	return nil
}

func classSchema(class string, distance Distance) *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       class,
		Description: "Rendered struct documentation",
		Vectorizer:  "none",
		VectorIndexConfig: map[string]any{
			"distance": distance.weaviateMetric(),
		},
		Properties: []*models.Property{
			{
				Name:            propKey,
				DataType:        []string{"text"},
				Description:     "Document file name",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        propContent,
				DataType:    []string{"text"},
				Description: "Rendered markdown",
			},
		},
	}
}

// Upsert imports records in batches of BatchSize. Object ids derive from
// the class and key, so re-importing a key replaces its object.
func (w *Weaviate) Upsert(ctx context.Context, records []Record) error {
	if err := w.EnsureSchema(ctx); err != nil {
		return err
	}
	log := slogctx.FromCtx(ctx)

	for i := 0; i < len(records); i += BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+BatchSize, len(records))

		objects := w.objects(records[i:end])
		result, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return fmt.Errorf("%w: batch import: %v", ErrStoreFailure, err)
		}

		var errs *multierror.Error
		for j, obj := range result {
			if obj.Result == nil || obj.Result.Errors == nil {
				continue
			}
			for _, e := range obj.Result.Errors.Error {
				errs = multierror.Append(errs, fmt.Errorf("%s: %s", records[i+j].Key, e.Message))
			}
		}
		if err := errs.ErrorOrNil(); err != nil {
			return fmt.Errorf("%w: batch import: %v", ErrStoreFailure, err)
		}

		log.Debug("imported batch", slog.Int("count", end-i), slog.Int("total", end))
	}
	return nil
}

func (w *Weaviate) objects(records []Record) []*models.Object {
	objects := make([]*models.Object, len(records))
	for i, r := range records {
		objects[i] = &models.Object{
			Class:  w.class,
			ID:     objectID(w.class, r.Key),
			Vector: r.Vector,
			Properties: map[string]any{
				propKey:     r.Key,
				propContent: r.Content,
			},
		}
	}
	return objects
}

func objectID(class, key string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(objectSpace, []byte(class+"/"+key)).String())
}

func (w *Weaviate) Search(ctx context.Context, vector []float32, n int) ([]Match, error) {
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	fields := []graphql.Field{
		{Name: propKey},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	resp, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(n).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrStoreFailure, err)
	}
	return parseSearch(resp, w.class)
}

type searchHit struct {
	Key        string `json:"key"`
	Additional struct {
		Distance float32 `json:"distance"`
	} `json:"_additional"`
}

// parseSearch decodes a Get query response for class.
func parseSearch(resp *models.GraphQLResponse, class string) ([]Match, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil search response", ErrStoreFailure)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("%w: search: %s", ErrStoreFailure, strings.Join(msgs, "; "))
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding search response: %v", ErrStoreFailure, err)
	}
	var parsed struct {
		Get map[string][]searchHit `json:"Get"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %v", ErrStoreFailure, err)
	}

	hits := parsed.Get[class]
	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = Match{Key: h.Key, Distance: h.Additional.Distance}
	}
	return matches, nil
}
