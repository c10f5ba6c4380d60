// Package storage defines the common interfaces of the storage adapters that hold record files
// and issue reports (local file system, GCS).
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is wrapped by Download when the object does not exist.
var ErrObjectNotFound = errors.New("storage object not found")

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload writes data to the object, replacing it if present.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the object for reading. The caller must close the returned reader.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for each object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes the object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named, closable storage connection.
type StorageConnection interface {
	StorageExecutor
	Close() error
	Type() string
	Name() string
}

// StorageProvider creates and caches the connections of one storage type.
type StorageProvider interface {
	GetConnection(ctx context.Context, name string) (StorageConnection, error)
	CloseAll() error
	Type() string
}
