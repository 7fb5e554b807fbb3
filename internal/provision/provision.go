// Package provision resolves dataset references to local scratch files for
// the execution engine.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/niisara/poc-azure-assistant/internal/apierr"
	"github.com/niisara/poc-azure-assistant/internal/blobstore"
)

// DatasetRef identifies one dataset blob inside the configured container.
type DatasetRef struct {
	ConversationID string
	FileName       string
}

// Key is the blob key the ref resolves to.
func (r DatasetRef) Key() string {
	return r.ConversationID + "/" + r.FileName
}

// Provision downloads the referenced blob to a uniquely named scratch file
// and returns its path plus a cleanup func.
//
// Callers must defer cleanup on every path: success, snippet fault, or a
// later engine failure. Cleanup deletes best-effort; a failed delete is
// logged and never escalated.
//
// Edge cases:
//   - A missing blob maps to apierr.NotFound.
//   - If writing the scratch file fails after a partial write, the partial
//     file is removed before returning.
func Provision(ctx context.Context, gw blobstore.Gateway, ref DatasetRef, log *slog.Logger) (path string, cleanup func(), err error) {
	key := ref.Key()

	data, err := gw.Download(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", nil, apierr.NotFound("dataset %q not found", key)
		}
		return "", nil, apierr.Storage(err, "download dataset %q", key)
	}

	name := "dataset-" + uuid.NewString() + filepath.Ext(ref.FileName)
	path = filepath.Join(os.TempDir(), name)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("write scratch file for %q: %w", key, err)
	}

	log.Info("provisioned dataset", "key", key, "path", path, "bytes", len(data))
	cleanup = func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove scratch file", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}
