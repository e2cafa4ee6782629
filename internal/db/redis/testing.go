package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a pre-built client (e.g. rueidis/mock) without dialing.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
