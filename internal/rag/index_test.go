package rag

import (
	"math"
	"testing"
)

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	idx.Reset([]Document{
		{Text: "umbrella", Vector: []float64{1, 0, 0}, Source: &Source{ProductID: 1}},
		{Text: "yoga mat", Vector: []float64{0, 1, 0}, Source: &Source{ProductID: 2}},
		{Text: "mixed", Vector: []float64{1, 1, 0}, Source: &Source{ProductID: 3}},
	})

	matches := idx.Search([]float64{1, 0, 0}, 2)
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Document.Source.ProductID != 1 {
		t.Fatalf("best match product %d, want 1", matches[0].Document.Source.ProductID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("scores not descending: %v, %v", matches[0].Score, matches[1].Score)
	}
	if math.Abs(matches[0].Score-1) > 1e-9 {
		t.Fatalf("identical vectors score = %v, want 1", matches[0].Score)
	}
}

func TestSearchZeroKReturnsAll(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	idx.Reset([]Document{
		{Vector: []float64{1, 0}},
		{Vector: []float64{0, 1}},
	})
	if got := len(idx.Search([]float64{1, 1}, 0)); got != 2 {
		t.Fatalf("got %d matches, want all 2", got)
	}
}

func TestCosineDegenerateInputs(t *testing.T) {
	t.Parallel()

	if got := cosine(nil, nil); got != 0 {
		t.Fatalf("cosine(nil, nil) = %v, want 0", got)
	}
	if got := cosine([]float64{1, 2}, []float64{1}); got != 0 {
		t.Fatalf("mismatched lengths = %v, want 0", got)
	}
	if got := cosine([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Fatalf("zero vector = %v, want 0", got)
	}
}

func TestResetReplacesContents(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	idx.Reset([]Document{{Vector: []float64{1}}, {Vector: []float64{2}}})
	idx.Reset([]Document{{Vector: []float64{3}}})
	if idx.Len() != 1 {
		t.Fatalf("Len = %d after reset, want 1", idx.Len())
	}
}
