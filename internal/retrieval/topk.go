// Package retrieval ranks corpus rows against a query vector by dot-product similarity.
package retrieval

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Scores computes score[i] = dot(m.Row(i), query) for every row.
// Accumulates in float64 so ranking does not depend on summation order noise.
func Scores(query []float32, m domain.Matrix) ([]float64, error) {
	if len(query) != m.Cols() {
		return nil, fmt.Errorf("%w: query has %d dimensions, matrix has %d",
			domain.ErrInvalidInput, len(query), m.Cols())
	}
	scores := make([]float64, m.Rows())
	for i := range scores {
		row := m.Row(i)
		var s float64
		for j, v := range row {
			s += float64(v) * float64(query[j])
		}
		scores[i] = s
	}
	return scores, nil
}

// Search returns the k rows most similar to query, best first.
// Equal scores rank the lower index first.
func Search(query []float32, m domain.Matrix, k int) (domain.RankedResultSet, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if k > m.Rows() {
		return nil, fmt.Errorf("%w: k=%d exceeds corpus size %d", domain.ErrInvalidInput, k, m.Rows())
	}
	scores, err := Scores(query, m)
	if err != nil {
		return nil, err
	}
	return TopK(scores, k), nil
}

// TopK selects the k best entries of scores. k must be in [1, len(scores)].
func TopK(scores []float64, k int) domain.RankedResultSet {
	h := make(worstFirst, 0, k)
	for i, s := range scores {
		cand := domain.ScoredResult{Index: i, Score: s}
		if len(h) < k {
			heap.Push(&h, cand)
			continue
		}
		if better(cand, h[0]) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	out := domain.RankedResultSet(h)
	sort.Slice(out, func(a, b int) bool { return better(out[a], out[b]) })
	return out
}

// better orders by score desc, then index asc.
func better(a, b domain.ScoredResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Index < b.Index
}

// worstFirst is a min-heap whose root is the weakest kept candidate.
type worstFirst []domain.ScoredResult

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(domain.ScoredResult)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
