// Package cache provides the result cache that memoizes engine outputs.
//
// Keys quantize coordinates to four decimals (~11m) and include every
// parameter that affects the result. Duplicate concurrent misses for the
// same key are tolerated: recomputation is idempotent and side-effect-free,
// so no lock guards the compute path.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store is a key-value backend with per-entry TTL.
type Store interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate removes all entries whose key starts with prefix and
	// returns how many were removed.
	Invalidate(ctx context.Context, prefix string) (int, error)
}

// Key builds a deterministic cache key from an operation name, a quantized
// coordinate pair and the remaining result-affecting parameters.
func Key(op string, lat, lon float64, params ...interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%.4f:%.4f", op, lat, lon)
	for _, p := range params {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}
