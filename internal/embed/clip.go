// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package embed

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

var markdownSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Clip shortens text to at most maxChars characters, cutting at the
// latest paragraph, line or sentence boundary that fits. A maxChars of
// zero or less returns text unchanged.
func Clip(text string, maxChars int) (string, error) {
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		return text, nil
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxChars),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithSeparators(markdownSeparators),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return "", fmt.Errorf("splitting document: %w", err)
	}
	if len(chunks) == 0 {
		return "", nil
	}
	return chunks[0], nil
}
