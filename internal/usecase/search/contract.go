package search

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Encoder turns query text into a vector of the given space.
type Encoder interface {
	Encode(ctx context.Context, space domain.Space, text string) ([]float32, error)
	Spaces() []domain.Space
	Loaded(space domain.Space) bool
}

// Corpus reads the immutable document table and its matrices.
type Corpus interface {
	RowCount() int
	DocumentAt(i int) (domain.Document, error)
	Documents(offset, limit int) []domain.Document
	MatrixFor(space domain.Space) (domain.Matrix, error)
	Manifest(space domain.Space) domain.Manifest
}
