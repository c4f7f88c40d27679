package rag

import (
	"math"
	"sort"
	"sync"
)

// Document is one indexed entry: embedded text plus optional product
// metadata. Non-product entries (store information) carry a nil Source.
type Document struct {
	Text   string
	Vector []float64
	Source *Source
}

// Match is a retrieval hit with its similarity score.
type Match struct {
	Document Document
	Score    float64
}

// Index is an in-memory vector index over the product catalog.
// Searches rank by cosine similarity.
type Index struct {
	mu   sync.RWMutex
	docs []Document
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Reset replaces the index contents.
func (i *Index) Reset(docs []Document) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs = docs
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// Search returns the k most similar documents to the query vector,
// best first.
func (i *Index) Search(query []float64, k int) []Match {
	i.mu.RLock()
	defer i.mu.RUnlock()

	matches := make([]Match, 0, len(i.docs))
	for _, doc := range i.docs {
		matches = append(matches, Match{Document: doc, Score: cosine(query, doc.Vector)})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
