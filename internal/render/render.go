// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package render turns struct documents into the markdown text that is
// embedded and indexed.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/petar-djukic/docrag/internal/walker"
	"github.com/petar-djukic/docrag/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var structTemplate = template.Must(template.ParseFS(templateFS, "templates/struct.tmpl"))

type fieldView struct {
	Name    string
	Docs    string
	HasDocs bool
}

type structView struct {
	Name    string
	Docs    string
	HasDocs bool
	Fields  []fieldView
}

// Render returns the markdown for doc.
func Render(doc types.StructDocument) (string, error) {
	v := structView{Name: doc.Name}
	if doc.Docs != nil {
		v.Docs, v.HasDocs = *doc.Docs, true
	}
	for _, f := range doc.Fields {
		fv := fieldView{Name: f.Name}
		if f.Docs != nil {
			fv.Docs, fv.HasDocs = *f.Docs, true
		}
		v.Fields = append(v.Fields, fv)
	}

	var buf bytes.Buffer
	if err := structTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("executing struct template: %w", err)
	}
	return buf.String(), nil
}

// DocumentKey names the document for doc. Unqualified keys collide when
// two units define structs with the same name; the later one wins.
func DocumentKey(doc types.StructDocument, qualify bool) string {
	if qualify {
		return doc.Unit + walker.PathSeparator + doc.Name
	}
	return doc.Name
}
