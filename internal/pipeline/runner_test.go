// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/petar-djukic/docrag/internal/embed"
	"github.com/petar-djukic/docrag/internal/logging"
	"github.com/petar-djukic/docrag/internal/render"
	"github.com/petar-djukic/docrag/internal/store"
	"github.com/petar-djukic/docrag/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gameJSON = `{"root": 0, "format_version": 39, "index": {
	  "0": {"id": 0, "name": "game", "inner": {"module": {"is_crate": true, "items": [1, 2, 3]}}},
	  "1": {"id": 1, "name": "Player", "docs": "A controllable character.", "inner": {"struct": {"kind": {"plain": {"fields": [4], "has_stripped_fields": false}}}}},
	  "2": {"id": 2, "name": null, "inner": {"use": {"source": "glam::Vec3", "name": "Vec3", "id": 99, "is_glob": false}}},
	  "3": {"id": 3, "name": "Marker", "inner": {"struct": {"kind": "unit"}}},
	  "4": {"id": 4, "name": "health", "docs": "Hit points.", "inner": {"struct_field": {"primitive": "u32"}}}
	}, "external_crates": {"1": {"name": "glam"}}}`

	glamJSON = `{"root": 10, "index": {
	  "10": {"id": 10, "name": "glam", "inner": {"module": {"is_crate": true, "items": [11]}}},
	  "11": {"id": 11, "name": "Vec3", "inner": {"struct": {"kind": {"plain": {"fields": [12]}}}}},
	  "12": {"id": 12, "name": "x", "inner": {"struct_field": {"primitive": "f32"}}}
	}, "external_crates": {}}`
)

// keywordEmbedder maps text onto one axis per keyword it contains.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

var keywords = []string{"health", "Vec3", "Marker"}

func (k *keywordEmbedder) Model() string { return "keywords" }

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.mu.Lock()
	k.calls++
	k.mu.Unlock()
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(keywords))
		for j, kw := range keywords {
			if strings.Contains(text, kw) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func setup(t *testing.T) Deps {
	t.Helper()
	jsons := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(jsons, "game.json"), []byte(gameJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(jsons, "glam.json"), []byte(glamJSON), 0o644))

	return Deps{
		Embedder: &keywordEmbedder{},
		Store:    store.NewMemory(store.SquaredL2),
		JSONsDir: jsons,
		OutDir:   t.TempDir(),
		Project:  "game",
	}
}

func TestRunner_Render(t *testing.T) {
	deps := setup(t)
	stale := filepath.Join(deps.OutDir, "structs", "Stale.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	res, err := NewRunner(deps).Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 3, res.Stats.Emitted)
	assert.Equal(t, 1, res.Stats.UnitsEntered)
	assert.NoFileExists(t, stale)

	player, err := os.ReadFile(filepath.Join(deps.OutDir, "structs", "Player.md"))
	require.NoError(t, err)
	assert.Equal(t, "Player is a struct.\n\nA controllable character.\n\n"+
		"It has the following fields: health, \n\n"+
		"More details about the health field:\n\nHit points.\n\n", string(player))
	assert.FileExists(t, filepath.Join(deps.OutDir, "structs", "Vec3.md"))
}

func TestRunner_RenderLogsDeclaredDependencies(t *testing.T) {
	deps := setup(t)
	sparse := strings.Replace(gameJSON, `"external_crates": {"1": {"name": "glam"}}`,
		`"external_crates": {"1": {"name": "glam"}, "7": {"name": "std"}}`, 1)
	require.NoError(t, os.WriteFile(filepath.Join(deps.JSONsDir, "game.json"), []byte(sparse), 0o644))

	var buf bytes.Buffer
	logger, err := logging.New(logging.Config{Level: "info", Format: logging.FormatJSON, Writer: &buf})
	require.NoError(t, err)
	ctx := logging.WithContext(context.Background(), logger)

	_, err = NewRunner(deps).Render(ctx)
	require.NoError(t, err)

	var loaded map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec["msg"] == "catalog loaded" {
			loaded = rec
		}
	}
	require.NotNil(t, loaded, "catalog loaded record")
	assert.EqualValues(t, 2, loaded["declared"])
	assert.EqualValues(t, 2, loaded["units"])
}

func TestRunner_RenderQualified(t *testing.T) {
	deps := setup(t)
	deps.Qualify = true

	_, err := NewRunner(deps).Render(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(deps.OutDir, "structs", "glam::Vec3.md"))
	assert.FileExists(t, filepath.Join(deps.OutDir, "structs", "game::Player.md"))
}

func TestRunner_IndexThenQuery(t *testing.T) {
	deps := setup(t)
	deps.Concurrency = 2
	r := NewRunner(deps)
	ctx := context.Background()

	res, err := r.Index(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 3, res.Structs)
	assert.Equal(t, 3, res.Documents)

	results, err := r.Query(ctx, "how much health does it have", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Player", results[0].Name)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)

	results, err = r.Query(ctx, "Vec3", 1)
	require.NoError(t, err)
	assert.Equal(t, []Result{{Name: "Vec3", Distance: 0}}, results)
}

func TestRunner_IndexSkipsExistingCollection(t *testing.T) {
	deps := setup(t)
	ctx := context.Background()

	_, err := NewRunner(deps).Index(ctx)
	require.NoError(t, err)
	calls := deps.Embedder.(*keywordEmbedder).calls

	res, err := NewRunner(deps).Index(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, calls, deps.Embedder.(*keywordEmbedder).calls, "no embedding when skipped")

	deps.Recompute = true
	res, err = NewRunner(deps).Index(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, 3, deps.Store.(*store.Memory).Len())
}

func TestRunner_QueryBeforeIndex(t *testing.T) {
	deps := setup(t)
	_, err := NewRunner(deps).Query(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestRunner_Errors(t *testing.T) {
	t.Run("missing primary", func(t *testing.T) {
		deps := setup(t)
		deps.Project = "bevy"
		_, err := NewRunner(deps).Index(context.Background())
		assert.ErrorIs(t, err, types.ErrMissingRequiredFile)
	})

	t.Run("embedding failure", func(t *testing.T) {
		deps := setup(t)
		deps.Embedder = &keywordEmbedder{err: embed.ErrEmbeddingFailure}
		_, err := NewRunner(deps).Index(context.Background())
		assert.ErrorIs(t, err, embed.ErrEmbeddingFailure)

		ok, err := deps.Store.Exists(context.Background())
		require.NoError(t, err)
		assert.False(t, ok, "nothing stored after a failed index")
	})

	t.Run("unsupported kind", func(t *testing.T) {
		deps := setup(t)
		bad := strings.Replace(gameJSON, `"inner": {"struct": {"kind": "unit"}}`, `"inner": {"union": {}}`, 1)
		require.NoError(t, os.WriteFile(filepath.Join(deps.JSONsDir, "game.json"), []byte(bad), 0o644))
		_, err := NewRunner(deps).Render(context.Background())
		assert.ErrorIs(t, err, types.ErrUnsupportedKind)
	})
}

func TestEmbedAll_PreservesOrderAcrossBatches(t *testing.T) {
	deps := setup(t)
	deps.Concurrency = 3
	r := NewRunner(deps)

	docs := make([]render.Document, 50)
	for i := range docs {
		text := "plain"
		if i%7 == 0 {
			text = "Marker"
		}
		docs[i] = render.Document{Key: string(rune('A'+i%26)) + string(rune('a'+i/26)), Text: text}
	}

	records, err := r.embedAll(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, records, len(docs))
	for i, rec := range records {
		assert.Equal(t, docs[i].Key, rec.Key)
		want := float32(0)
		if i%7 == 0 {
			want = 1
		}
		assert.Equal(t, want, rec.Vector[2], "record %d", i)
	}
}
