// Package contentstore is the content-addressed storage boundary of the
// engine: store bytes, get back an identifier, fetch bytes by identifier.
// Failures are transient I/O errors; retry policy belongs to the caller.
package contentstore

import "context"

type Store interface {
	Store(ctx context.Context, data []byte) (string, error)
	Fetch(ctx context.Context, id string) ([]byte, error)
}
