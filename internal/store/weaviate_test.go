// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestClassSchema(t *testing.T) {
	c := classSchema("DocAbc", InnerProduct)

	assert.Equal(t, "DocAbc", c.Class)
	assert.Equal(t, "none", c.Vectorizer)
	assert.Equal(t, map[string]any{"distance": "dot"}, c.VectorIndexConfig)
	require.Len(t, c.Properties, 2)
	assert.Equal(t, propKey, c.Properties[0].Name)
	assert.Equal(t, propContent, c.Properties[1].Name)
}

func TestObjects_IDsAreStablePerKey(t *testing.T) {
	w := &Weaviate{class: "DocAbc"}
	first := w.objects([]Record{{Key: "Vec3.md", Content: "x", Vector: []float32{1}}})
	second := w.objects([]Record{{Key: "Vec3.md", Content: "y", Vector: []float32{2}}})

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, objectID("DocAbc", "Vec3.md"), objectID("DocDef", "Vec3.md"))
	assert.Equal(t, "Vec3.md", first[0].Properties.(map[string]any)[propKey])
	assert.Equal(t, models.C11yVector{1}, first[0].Vector)
}

func TestParseSearch(t *testing.T) {
	resp := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]any{
				"DocAbc": []any{
					map[string]any{"key": "Vec3.md", "_additional": map[string]any{"distance": 0.125}},
					map[string]any{"key": "Quat.md", "_additional": map[string]any{"distance": 0.5}},
				},
			},
		},
	}

	got, err := parseSearch(resp, "DocAbc")
	require.NoError(t, err)
	assert.Equal(t, []Match{{Key: "Vec3.md", Distance: 0.125}, {Key: "Quat.md", Distance: 0.5}}, got)

	got, err = parseSearch(&models.GraphQLResponse{Data: map[string]models.JSONObject{}}, "DocAbc")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseSearch_Errors(t *testing.T) {
	_, err := parseSearch(nil, "DocAbc")
	assert.ErrorIs(t, err, ErrStoreFailure)

	_, err = parseSearch(&models.GraphQLResponse{
		Errors: []*models.GraphQLError{{Message: "class not found"}},
	}, "DocAbc")
	require.ErrorIs(t, err, ErrStoreFailure)
	assert.Contains(t, err.Error(), "class not found")
}

func TestNewWeaviateClient_RejectsBadURL(t *testing.T) {
	_, err := NewWeaviateClient("localhost")
	assert.ErrorIs(t, err, ErrStoreFailure)
}

func TestWeaviate_Exists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/meta":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version": "1.35.2"}`))
		case strings.HasPrefix(r.URL.Path, "/v1/schema/DocPresent"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"class": "DocPresent", "vectorizer": "none"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewWeaviateClient(srv.URL)
	require.NoError(t, err)

	ok, err := NewWeaviate(client, "DocPresent", SquaredL2).Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewWeaviate(client, "DocAbsent", SquaredL2).Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

// fakeWeaviate serves the REST endpoints the store uses and records the
// order of schema and batch calls.
type fakeWeaviate struct {
	mu       sync.Mutex
	classes  map[string]bool
	calls    []string
	batches  []int
	failKey  string
	distance string
	query    string
}

func newFakeWeaviate(t *testing.T, classes ...string) (*fakeWeaviate, *Weaviate) {
	t.Helper()
	f := &fakeWeaviate{classes: make(map[string]bool)}
	for _, c := range classes {
		f.classes[c] = true
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewWeaviateClient(srv.URL)
	require.NoError(t, err)
	return f, NewWeaviate(client, "DocTest", Cosine)
}

func (f *fakeWeaviate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case path == "/v1/meta":
		_, _ = w.Write([]byte(`{"version": "1.35.2"}`))

	case r.Method == http.MethodGet && path == "/v1/schema":
		out := models.Schema{}
		for c := range f.classes {
			out.Classes = append(out.Classes, &models.Class{Class: c})
		}
		writeJSON(w, out)

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v1/schema/"):
		class := strings.TrimPrefix(path, "/v1/schema/")
		if !f.classes[class] {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, models.Class{Class: class, Vectorizer: "none"})

	case r.Method == http.MethodPost && path == "/v1/schema":
		var c models.Class
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.classes[c.Class] = true
		f.calls = append(f.calls, "create:"+c.Class)
		if cfg, ok := c.VectorIndexConfig.(map[string]any); ok {
			f.distance, _ = cfg["distance"].(string)
		}
		writeJSON(w, c)

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/v1/schema/"):
		class := strings.TrimPrefix(path, "/v1/schema/")
		delete(f.classes, class)
		f.calls = append(f.calls, "delete:"+class)

	case r.Method == http.MethodPost && path == "/v1/batch/objects":
		var body struct {
			Objects []*models.Object `json:"objects"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.calls = append(f.calls, fmt.Sprintf("batch:%d", len(body.Objects)))
		f.batches = append(f.batches, len(body.Objects))

		out := make([]map[string]any, len(body.Objects))
		for i, obj := range body.Objects {
			entry := map[string]any{"class": obj.Class, "id": obj.ID, "result": map[string]any{}}
			props, _ := obj.Properties.(map[string]any)
			if f.failKey != "" && props[propKey] == f.failKey {
				entry["result"] = map[string]any{
					"errors": map[string]any{"error": []map[string]any{{"message": "vector length mismatch"}}},
				}
			}
			out[i] = entry
		}
		writeJSON(w, out)

	case r.Method == http.MethodPost && path == "/v1/graphql":
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.query = body.Query
		_, _ = w.Write([]byte(`{"data": {"Get": {"DocTest": [
			{"key": "Vec3.md", "_additional": {"distance": 0.25}},
			{"key": "Quat.md", "_additional": {"distance": 0.75}}
		]}}}`))

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	out, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(out)
}

func testRecords(n int) []Record {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Key:     fmt.Sprintf("S%03d.md", i),
			Content: "doc",
			Vector:  []float32{float32(i), 1},
		}
	}
	return records
}

func TestWeaviate_UpsertCreatesSchemaThenBatches(t *testing.T) {
	f, w := newFakeWeaviate(t)

	require.NoError(t, w.Upsert(context.Background(), testRecords(150)))

	assert.Equal(t, []int{BatchSize, 50}, f.batches)
	assert.Equal(t, []string{"create:DocTest", "batch:100", "batch:50"}, f.calls)
	assert.Equal(t, "cosine", f.distance)
}

func TestWeaviate_UpsertSkipsSchemaWhenPresent(t *testing.T) {
	f, w := newFakeWeaviate(t, "DocTest")

	require.NoError(t, w.Upsert(context.Background(), testRecords(3)))

	assert.Equal(t, []string{"batch:3"}, f.calls)
}

func TestWeaviate_UpsertObjectError(t *testing.T) {
	f, w := newFakeWeaviate(t)
	f.failKey = "S120.md"

	err := w.Upsert(context.Background(), testRecords(150))

	require.ErrorIs(t, err, ErrStoreFailure)
	assert.Contains(t, err.Error(), "S120.md")
	assert.Contains(t, err.Error(), "vector length mismatch")
	assert.Equal(t, []int{BatchSize, 50}, f.batches)
}

func TestWeaviate_Reset(t *testing.T) {
	f, w := newFakeWeaviate(t, "DocTest")

	require.NoError(t, w.Reset(context.Background()))
	assert.Equal(t, []string{"delete:DocTest"}, f.calls)

	ok, err := w.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, w.Reset(context.Background()))
	assert.Equal(t, []string{"delete:DocTest"}, f.calls, "absent class is not deleted")
}

func TestWeaviate_Search(t *testing.T) {
	f, w := newFakeWeaviate(t, "DocTest")

	got, err := w.Search(context.Background(), []float32{0.5, 1}, 2)
	require.NoError(t, err)

	assert.Equal(t, []Match{{Key: "Vec3.md", Distance: 0.25}, {Key: "Quat.md", Distance: 0.75}}, got)
	assert.Contains(t, f.query, "DocTest")
	assert.Contains(t, f.query, "nearVector")
	assert.Contains(t, f.query, "distance")
}
