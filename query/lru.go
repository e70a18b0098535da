package query

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// NewARCDriver creates a CacheDriver that keeps at most size entries using an
// adaptive replacement cache.
func NewARCDriver(size int) (CacheDriver, error) {
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("create arc cache: %w", err)
	}
	return cache, nil
}

var _ CacheDriver = (*lru.ARCCache)(nil)
