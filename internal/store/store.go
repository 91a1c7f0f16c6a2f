// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package store keeps document vectors and answers nearest-neighbour
// queries over them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrStoreFailure indicates the vector store rejected or failed a request.
var ErrStoreFailure = errors.New("vector store failure")

// Record is one document and its vector.
type Record struct {
	Key     string
	Content string
	Vector  []float32
}

// Match is one search hit. Smaller distances are closer.
type Match struct {
	Key      string
	Distance float32
}

// Store is a named collection of records.
type Store interface {
	// Exists reports whether the collection has been created.
	Exists(ctx context.Context) (bool, error)
	// Reset drops the collection and everything in it.
	Reset(ctx context.Context) error
	// Upsert creates the collection if needed and inserts or replaces
	// records by key.
	Upsert(ctx context.Context, records []Record) error
	// Search returns up to n records nearest to vector, closest first.
	Search(ctx context.Context, vector []float32, n int) ([]Match, error)
}

// Distance is the metric used to compare vectors.
type Distance string

const (
	SquaredL2    Distance = "squared-l2"
	InnerProduct Distance = "inner-product"
	Cosine       Distance = "cosine"
)

// ParseDistance accepts the metric names and their short aliases.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(s) {
	case "squared-l2", "l2":
		return SquaredL2, nil
	case "inner-product", "ip":
		return InnerProduct, nil
	case "cosine":
		return Cosine, nil
	default:
		return "", fmt.Errorf("invalid distance metric %q (want squared-l2, l2, inner-product, ip or cosine)", s)
	}
}

// String implements pflag.Value.
func (d *Distance) String() string { return string(*d) }

// Set implements pflag.Value.
func (d *Distance) Set(s string) error {
	v, err := ParseDistance(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Type implements pflag.Value.
func (d *Distance) Type() string { return "distance" }

// weaviateMetric is the vectorIndexConfig distance name for d.
func (d Distance) weaviateMetric() string {
	switch d {
	case InnerProduct:
		return "dot"
	case Cosine:
		return "cosine"
	default:
		return "l2-squared"
	}
}

// collectionSpace namespaces collection-name hashes.
var collectionSpace = uuid.MustParse("6f1c9a52-3b0e-4d7a-9a55-0d6c2e8b7f41")

// CollectionName derives a deterministic collection name from the inputs
// that change the vectors: the embedding model, the metric and the
// project. Changing any of them selects a fresh collection.
func CollectionName(model string, distance Distance, project string) string {
	id := uuid.NewSHA1(collectionSpace, []byte(model+"\x00"+string(distance)+"\x00"+project))
	return "Doc" + strings.ReplaceAll(id.String(), "-", "")
}
