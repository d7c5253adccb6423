//go:build !unix

package file

import (
	"context"
	"time"
)

// acquire is a no-op where flock is unavailable; writers race.
func acquire(ctx context.Context, path string, timeout time.Duration) (func(), error) {
	return func() {}, nil
}
