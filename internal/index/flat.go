package index

import (
	"fmt"
	"sort"
)

// Hit is a single nearest-neighbour result: inner-product score plus the
// vector's position in the index. Position -1 marks an unfilled slot when
// the index holds fewer than k vectors.
type Hit struct {
	Score    float32
	Position int
}

// Flat is an exact, brute-force inner-product index over unit vectors. With
// L2-normalized vectors the inner product equals cosine similarity. The
// corpus is one policy document (low hundreds of chunks), so approximate
// search would buy nothing.
type Flat struct {
	Dimension int
	Vectors   [][]float32
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dimension int) *Flat {
	return &Flat{Dimension: dimension}
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.Vectors) }

// Add appends vectors to the index in order.
func (f *Flat) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.Dimension {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), f.Dimension)
		}
	}
	f.Vectors = append(f.Vectors, vectors...)
	return nil
}

// Search returns the k highest inner-product hits ordered by descending
// score, ties broken by ascending position. The result always has length k;
// slots beyond the index size carry position -1.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != f.Dimension {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), f.Dimension)
	}

	hits := make([]Hit, len(f.Vectors))
	for i, v := range f.Vectors {
		hits[i] = Hit{Score: dot(query, v), Position: i}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})

	out := make([]Hit, k)
	for i := range out {
		if i < len(hits) {
			out[i] = hits[i]
		} else {
			out[i] = Hit{Position: -1}
		}
	}
	return out, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
