// Package filecache remembers the provider-issued file handles of uploaded
// files so repeat sends can reference the remote handle instead of
// re-uploading content.
package filecache

import "context"

// Cache maps a logical file name to the provider's file_id.
type Cache interface {
	// Get returns the cached handle for name, or "" when absent.
	Get(ctx context.Context, name string) (string, error)
	// Set stores the handle for name.
	Set(ctx context.Context, name, fileID string) error
	// Invalidate removes the cached handle for name.
	Invalidate(ctx context.Context, name string) error
}
