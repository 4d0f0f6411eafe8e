// Package deduper drops repeated urls from batch input.
package deduper

import (
	"context"
	"sync"
)

type Deduper interface {
	// AddIfNotExists reports whether url was seen for the first time.
	AddIfNotExists(ctx context.Context, url string) bool
	Len() int
}

func New() Deduper {
	return &hashmap{
		seen: make(map[uint64]struct{}),
		mux:  &sync.RWMutex{},
	}
}
