package semsearch

import "github.com/kailas-cloud/semsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDataLoad         = domain.ErrDataLoad
	ErrEncoding         = domain.ErrEncoding
	ErrModelUnavailable = domain.ErrModelUnavailable
	ErrInvalidInput     = domain.ErrInvalidInput
	ErrIndexOutOfRange  = domain.ErrIndexOutOfRange
)
