// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is an in-process Store that searches by brute force. Distances
// follow the same conventions as Weaviate: squared euclidean, negated dot
// product, and one minus cosine similarity.
type Memory struct {
	distance Distance

	mu      sync.RWMutex
	created bool
	records map[string]Record
}

// NewMemory returns an empty, not yet created collection.
func NewMemory(distance Distance) *Memory {
	return &Memory{distance: distance, records: make(map[string]Record)}
}

func (m *Memory) Exists(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created, nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = false
	m.records = make(map[string]Record)
	return nil
}

func (m *Memory) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("%w: record %q has no vector", ErrStoreFailure, r.Key)
		}
	}
	m.created = true
	for _, r := range records {
		m.records[r.Key] = r
	}
	return nil
}

func (m *Memory) Search(_ context.Context, vector []float32, n int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.records))
	for key, r := range m.records {
		if len(r.Vector) != len(vector) {
			return nil, fmt.Errorf("%w: query has %d dimensions, %q has %d",
				ErrStoreFailure, len(vector), key, len(r.Vector))
		}
		matches = append(matches, Match{Key: key, Distance: m.distance.between(vector, r.Vector)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Key < matches[j].Key
	})
	if n >= 0 && len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (d Distance) between(a, b []float32) float32 {
	var dot, na, nb, sq float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
		sq += (x - y) * (x - y)
	}

	switch d {
	case InnerProduct:
		return float32(-dot)
	case Cosine:
		if na == 0 || nb == 0 {
			return 1
		}
		return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
	default:
		return float32(sq)
	}
}
