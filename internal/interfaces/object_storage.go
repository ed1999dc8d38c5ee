package interfaces

import (
	"context"
	"io"
)

// StoredObject is what the storage collaborator hands back after an upload.
type StoredObject struct {
	URL       string
	StorageID string
}

// ObjectStorage is the opaque file store for story images. The server keeps
// only {url, storageId} and never inspects file bytes.
type ObjectStorage interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*StoredObject, error)
	Delete(ctx context.Context, storageID string) error
}
