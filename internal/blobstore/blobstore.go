// Package blobstore defines the gateway contract against the conversation
// object store.
//
// The API server only ever needs five operations: download a blob, list
// blobs under a prefix, read and write per-blob metadata, and list the
// account's containers. Everything Azure-specific lives behind the Gateway
// interface so the schema engine and the HTTP handlers can be exercised
// against the in-memory implementation.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced blob does not exist.
//
// Implementations must return an error matching ErrNotFound (via errors.Is)
// from Download, GetMetadata and SetMetadata for missing keys, so callers
// can map it to a not-found API response without knowing the backend.
var ErrNotFound = errors.New("blob not found")

// BlobInfo describes one listed blob.
type BlobInfo struct {
	// Name is the full key within the container, e.g. "conv-42/sales.csv".
	Name string
}

// ContainerInfo describes one listed container.
type ContainerInfo struct {
	Name string
}

// Metadata is a blob's user-defined metadata. Keys are treated
// case-insensitively by Azure; implementations normalize them to lowercase
// on read so lookups behave the same across backends.
type Metadata map[string]string

// Gateway is the object-store contract.
//
// When to use:
//   - Inject a Gateway into the schema engine, the provisioner and the API
//     handlers; construct the Azure implementation in main and the memory
//     implementation in tests.
//
// Edge cases:
//   - Download/GetMetadata/SetMetadata return ErrNotFound for missing keys.
//   - ListBlobs with an empty prefix lists the whole container.
//   - SetMetadata replaces the blob's metadata wholesale, matching Azure
//     semantics; it is not a merge.
type Gateway interface {
	// Download returns the full content of the blob at key.
	Download(ctx context.Context, key string) ([]byte, error)

	// ListBlobs lists blobs whose names start with prefix, in backend order.
	ListBlobs(ctx context.Context, prefix string) ([]BlobInfo, error)

	// GetMetadata returns the blob's metadata with lowercased keys.
	// A blob with no metadata yields an empty, non-nil map.
	GetMetadata(ctx context.Context, key string) (Metadata, error)

	// SetMetadata replaces the blob's metadata.
	SetMetadata(ctx context.Context, key string, md Metadata) error

	// ListContainers lists the containers visible to the account.
	ListContainers(ctx context.Context) ([]ContainerInfo, error)
}
