package retrieval

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"sort"
	"testing"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

func mustMatrix(t *testing.T, rows [][]float32) domain.Matrix {
	t.Helper()
	cols := len(rows[0])
	data := make([]float32, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, r...)
	}
	m, err := domain.NewMatrix(data, len(rows), cols)
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}
	return m
}

func TestSearch_RanksByDotProduct(t *testing.T) {
	tests := []struct {
		name       string
		rows       [][]float32
		query      []float32
		k          int
		wantIdx    []int
		wantScores []float64
	}{
		{
			name:       "distinct scores",
			rows:       [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}, {-1, 0}, {0, -1}},
			query:      []float32{1, 0.5},
			k:          3,
			wantIdx:    []int{0, 2, 1},
			wantScores: []float64{1, 0.95, 0.5},
		},
		{
			name:    "non-normalized rows",
			rows:    [][]float32{{0.8, 0.1}, {0.2, 0.9}, {1, 0}, {-1, 0}, {0, -1}},
			query:   []float32{1, 0},
			k:       3,
			wantIdx: []int{2, 0, 1},
		},
		{
			// rows 0, 1 and 4 all score 1; the two lowest indices fill the remaining slots
			name:       "three-way tie behind the best row",
			rows:       [][]float32{{1, 0}, {0, 1}, {1, 1}, {-1, 0}, {0.5, 0.5}},
			query:      []float32{1, 1},
			k:          3,
			wantIdx:    []int{2, 0, 1},
			wantScores: []float64{2, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Search(tt.query, mustMatrix(t, tt.rows), tt.k)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.Indices(), tt.wantIdx) {
				t.Errorf("indices = %v, want %v", got.Indices(), tt.wantIdx)
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].Score < got[i].Score {
					t.Errorf("scores not descending: %+v", got)
				}
			}
			for i, want := range tt.wantScores {
				if math.Abs(got[i].Score-want) > 1e-6 {
					t.Errorf("score[%d] = %v, want %v", i, got[i].Score, want)
				}
			}
		})
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	m := mustMatrix(t, [][]float32{{1, 0}, {0, 1}})

	tests := []struct {
		name  string
		query []float32
		k     int
	}{
		{"k zero", []float32{1, 0}, 0},
		{"k negative", []float32{1, 0}, -2},
		{"k exceeds rows", []float32{1, 0}, 3},
		{"dimension mismatch", []float32{1, 0, 0}, 1},
		{"empty query", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Search(tt.query, m, tt.k)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSearch_ZeroQueryReturnsLowestIndices(t *testing.T) {
	m := mustMatrix(t, [][]float32{{3, 1}, {-2, 4}, {0.5, 0.5}, {9, 9}})

	got, err := Search([]float32{0, 0}, m, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []int{0, 1, 2}; !reflect.DeepEqual(got.Indices(), want) {
		t.Errorf("indices = %v, want %v", got.Indices(), want)
	}
	for _, r := range got {
		if r.Score != 0 {
			t.Errorf("expected zero score, got %v", r.Score)
		}
	}
}

func TestSearch_TieBreakByIndex(t *testing.T) {
	m := mustMatrix(t, [][]float32{{1}, {2}, {2}, {1}, {2}})

	got, err := Search([]float32{1}, m, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []int{1, 2, 4, 0}; !reflect.DeepEqual(got.Indices(), want) {
		t.Errorf("indices = %v, want %v", got.Indices(), want)
	}
}

func TestSearch_KEqualsRowsIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	rows := make([][]float32, 50)
	for i := range rows {
		rows[i] = []float32{float32(rng.NormFloat64()), float32(rng.NormFloat64()), float32(rng.NormFloat64())}
	}
	m := mustMatrix(t, rows)
	q := []float32{0.3, -0.7, 0.2}

	got, err := Search(q, m, len(rows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx := got.Indices()
	sort.Ints(idx)
	for i, v := range idx {
		if v != i {
			t.Fatalf("result is not a permutation of rows: %v", got.Indices())
		}
	}
}

func TestSearch_MatchesFullSort(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	rows := make([][]float32, 200)
	for i := range rows {
		rows[i] = make([]float32, 8)
		for j := range rows[i] {
			// coarse values to force ties
			rows[i][j] = float32(rng.IntN(3) - 1)
		}
	}
	m := mustMatrix(t, rows)
	q := []float32{1, 0, -1, 1, 0, 1, -1, 0}

	scores, err := Scores(q, m)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	all := make(domain.RankedResultSet, len(scores))
	for i, s := range scores {
		all[i] = domain.ScoredResult{Index: i, Score: s}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].Score > all[b].Score })

	for _, k := range []int{1, 5, 17, 200} {
		got, err := Search(q, m, k)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if !reflect.DeepEqual(got, all[:k]) {
			t.Errorf("k=%d: heap top-k differs from full sort", k)
		}
	}
}

func TestSearch_DeterministicAndPure(t *testing.T) {
	m := mustMatrix(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}})
	q := []float32{0.7, 0.8}
	qCopy := append([]float32(nil), q...)

	first, err := Search(q, m, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 10 {
		again, err := Search(q, m, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic: %v vs %v", first, again)
		}
	}
	if !reflect.DeepEqual(q, qCopy) {
		t.Error("query was mutated")
	}
	if m.Row(0)[0] != 0.1 {
		t.Error("matrix was mutated")
	}
}

func TestScores_FullVector(t *testing.T) {
	m := mustMatrix(t, [][]float32{{1, 2}, {3, 4}})
	got, err := Scores([]float32{1, 1}, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []float64{3, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("Scores = %v, want %v", got, want)
	}
}
