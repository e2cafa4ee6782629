package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDataLoad signals missing, unreadable, malformed or misaligned corpus artifacts.
	// Fatal at startup.
	ErrDataLoad = errors.New("data load error")
	// ErrEncoding signals a query that cannot be embedded (empty text, model unavailable).
	ErrEncoding = errors.New("cannot process this query")
	// ErrModelUnavailable signals a model that failed to load or answer. Always wrapped in ErrEncoding.
	ErrModelUnavailable = errors.New("embedding model unavailable")
	// ErrInvalidInput signals a malformed k or a query/matrix dimension mismatch.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIndexOutOfRange signals a document index outside the corpus; indicates corpus/matrix desync.
	ErrIndexOutOfRange = errors.New("document index out of range")
)

// IndexOutOfRangeError carries the offending index and the corpus size.
type IndexOutOfRangeError struct {
	Index    int
	RowCount int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %d not in [0, %d)", ErrIndexOutOfRange, e.Index, e.RowCount)
}

func (e *IndexOutOfRangeError) Unwrap() error { return ErrIndexOutOfRange }

// NewIndexOutOfRange creates an index-out-of-range error.
func NewIndexOutOfRange(index, rowCount int) error {
	return &IndexOutOfRangeError{Index: index, RowCount: rowCount}
}
