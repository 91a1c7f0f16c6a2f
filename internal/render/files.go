// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petar-djukic/docrag/pkg/types"
)

const (
	// StructsDir is the subdirectory of the output directory holding
	// rendered struct documents.
	StructsDir = "structs"

	// Ext is the file extension of rendered documents.
	Ext = ".md"
)

// Document is a rendered document read back from disk. Key is its file
// name, extension included.
type Document struct {
	Key  string
	Text string
}

// TrimKey strips the document extension from a key for display.
func TrimKey(key string) string {
	return strings.TrimSuffix(key, Ext)
}

// FileEmitter writes every emitted struct to <Dir>/structs/<key>.md.
type FileEmitter struct {
	Dir     string
	Qualify bool

	written int
}

// Emit renders doc and writes it, replacing any file with the same key.
func (e *FileEmitter) Emit(_ context.Context, doc types.StructDocument) error {
	text, err := Render(doc)
	if err != nil {
		return err
	}

	dir := filepath.Join(e.Dir, StructsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	path := filepath.Join(dir, DocumentKey(doc, e.Qualify)+Ext)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	e.written++
	return nil
}

// Written returns the number of files written, overwrites included.
func (e *FileEmitter) Written() int {
	return e.written
}

// ReadDocuments returns every rendered document under <dir>/structs in
// file name order.
func ReadDocuments(dir string) ([]Document, error) {
	root := filepath.Join(dir, StructsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}

	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Key: e.Name(), Text: string(data)})
	}
	return docs, nil
}
