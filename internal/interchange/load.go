// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package interchange

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/petar-djukic/docrag/internal/catalog"
	"github.com/petar-djukic/docrag/pkg/types"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"
)

// FileExt is the extension of interchange files.
const FileExt = ".json"

// Path returns the interchange file for a unit name inside dir.
func Path(dir, unit string) string {
	return filepath.Join(dir, unit+FileExt)
}

// Load reads <dir>/<project>.json as the primary unit, sizes the catalog
// from the dependencies it declares, and loads every dependency whose file
// is present in dir. Absent dependency files are skipped.
func Load(ctx context.Context, dir, project string) (*catalog.Catalog, error) {
	log := slogctx.FromCtx(ctx)

	primary, err := ReadFile(Path(dir, project))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (generate it with RUSTDOCFLAGS=\"-Z unstable-options --output-format json\" cargo +nightly doc)",
			types.ErrMissingRequiredFile, Path(dir, project))
	}
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(catalog.Unit{Name: project, Table: primary})
	if err != nil {
		return nil, err
	}

	ids := make([]types.UnitID, 0, len(primary.ExternalUnits))
	for id := range primary.ExternalUnits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tables := make([]*catalog.Table, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		name := primary.ExternalUnits[id].Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := ReadFile(Path(dir, name))
			if errors.Is(err, fs.ErrNotExist) {
				log.Debug("dependency not supplied", slog.String("unit", name), slog.Uint64("id", uint64(id)))
				return nil
			}
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		if tables[i] == nil {
			continue
		}
		if err := cat.Set(id, catalog.Unit{Name: primary.ExternalUnits[id].Name, Table: tables[i]}); err != nil {
			return nil, err
		}
	}

	log.Debug("catalog loaded",
		slog.String("project", project),
		slog.Int("declared", len(ids)),
		slog.Int("loaded", len(cat.Loaded())-1))
	return cat, nil
}

// ReadFile decodes one interchange file. A missing file is reported with an
// error wrapping fs.ErrNotExist.
func ReadFile(path string) (*catalog.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
