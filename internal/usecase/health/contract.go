package health

import (
	"context"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Pinger checks availability of the optional query-vector cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelStates reports the lifecycle of each space's model cell.
type ModelStates interface {
	Spaces() []domain.Space
	State(space domain.Space) (bool, error)
}

// CorpusCounter reports how many documents were loaded.
type CorpusCounter interface {
	RowCount() int
}
