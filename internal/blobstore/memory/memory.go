// Package memory implements blobstore.Gateway on in-process maps.
//
// It exists for tests and local development; semantics mirror the Azure
// implementation (lowercased metadata keys, wholesale metadata replacement,
// ErrNotFound for missing blobs).
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/niisara/poc-azure-assistant/internal/blobstore"
)

// Store is an in-memory blob container plus the account's container list.
// The zero value is not usable; construct with New.
type Store struct {
	mu         sync.RWMutex
	blobs      map[string][]byte
	metadata   map[string]blobstore.Metadata
	containers []string
}

// New returns an empty store whose account exposes the given containers.
func New(containers ...string) *Store {
	return &Store{
		blobs:      map[string][]byte{},
		metadata:   map[string]blobstore.Metadata{},
		containers: append([]string(nil), containers...),
	}
}

// Put creates or replaces a blob. Metadata is cleared, matching an
// overwrite upload.
func (s *Store) Put(key string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), content...)
	delete(s.metadata, key)
}

// Download implements blobstore.Gateway.
func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

// ListBlobs implements blobstore.Gateway. Results are sorted by name so
// tests are deterministic.
func (s *Store) ListBlobs(ctx context.Context, prefix string) ([]blobstore.BlobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []blobstore.BlobInfo
	for name := range s.blobs {
		if strings.HasPrefix(name, prefix) {
			out = append(out, blobstore.BlobInfo{Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetMetadata implements blobstore.Gateway.
func (s *Store) GetMetadata(ctx context.Context, key string) (blobstore.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.blobs[key]; !ok {
		return nil, blobstore.ErrNotFound
	}
	md := blobstore.Metadata{}
	for k, v := range s.metadata[key] {
		md[strings.ToLower(k)] = v
	}
	return md, nil
}

// SetMetadata implements blobstore.Gateway.
func (s *Store) SetMetadata(ctx context.Context, key string, md blobstore.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return blobstore.ErrNotFound
	}
	cp := blobstore.Metadata{}
	for k, v := range md {
		cp[strings.ToLower(k)] = v
	}
	s.metadata[key] = cp
	return nil
}

// ListContainers implements blobstore.Gateway.
func (s *Store) ListContainers(ctx context.Context) ([]blobstore.ContainerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]blobstore.ContainerInfo, 0, len(s.containers))
	for _, name := range s.containers {
		out = append(out, blobstore.ContainerInfo{Name: name})
	}
	return out, nil
}
