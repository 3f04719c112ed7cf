// Package payload stores opaque binary blobs addressed by reference,
// decoupled from job metadata so job records stay small.
package payload

import (
	"context"
	"errors"
)

// ErrNotFound is returned for unknown references.
var ErrNotFound = errors.New("payload not found")

// Store holds immutable blobs. Put mints a fresh opaque reference; blobs are
// never updated in place. Empty blobs are legal.
type Store interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}
