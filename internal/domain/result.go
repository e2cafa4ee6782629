package domain

// ScoredResult pairs a document index with its similarity to the query.
type ScoredResult struct {
	Index int
	Score float64
}

// RankedResultSet is ordered by Score descending, ties broken by Index ascending.
// Indices are distinct.
type RankedResultSet []ScoredResult

// Indices returns the ranked document indices.
func (r RankedResultSet) Indices() []int {
	out := make([]int, len(r))
	for i, res := range r {
		out[i] = res.Index
	}
	return out
}
