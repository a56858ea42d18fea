// Package storage defines the common interfaces for storage adapters. The
// emitter and the retriever persist artifacts through these interfaces so the
// results directory can live on the local file system or in a GCS bucket.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload stores data under bucket/objectName. Implementations must not
	// expose a partially written object: readers see either the previous
	// content or the complete new content.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download returns a ReadCloser which must be closed by the caller.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named, typed storage endpoint.
type StorageConnection interface {
	StorageExecutor

	// Close releases the connection.
	Close() error
	// Type returns the adapter type ("local", "gcs").
	Type() string
	// Name returns the connection name from configuration ("results").
	Name() string
	// Location renders bucket/objectName as a human-readable path or URL,
	// used in logs and run reports.
	Location(bucket, objectName string) string
}

// StorageProvider creates and caches the connections of one adapter type.
type StorageProvider interface {
	// GetConnection retrieves the StorageConnection with the specified name.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the adapter type handled by this provider.
	Type() string
}
