// Package azure implements blobstore.Gateway against Azure Blob Storage
// using shared-key credentials.
package azure

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/niisara/poc-azure-assistant/internal/blobstore"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Gateway talks to a single container in one storage account.
type Gateway struct {
	client    *azblob.Client
	container string
}

// New builds a Gateway from shared-key credentials. It does not touch the
// network; connectivity problems surface on the first operation.
func New(accountName, accountKey, container string) (*Gateway, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	return &Gateway{client: client, container: container}, nil
}

// Download implements blobstore.Gateway.
func (g *Gateway) Download(ctx context.Context, key string) ([]byte, error) {
	resp, err := g.client.DownloadStream(ctx, g.container, key, nil)
	if err != nil {
		return nil, mapErr("download", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %q: read body: %w", key, err)
	}
	return data, nil
}

// ListBlobs implements blobstore.Gateway.
func (g *Gateway) ListBlobs(ctx context.Context, prefix string) ([]blobstore.BlobInfo, error) {
	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	var out []blobstore.BlobInfo
	pager := g.client.NewListBlobsFlatPager(g.container, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs %q: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				out = append(out, blobstore.BlobInfo{Name: *item.Name})
			}
		}
	}
	return out, nil
}

// GetMetadata implements blobstore.Gateway. Azure returns metadata keys in
// arbitrary casing; they are normalized to lowercase here.
func (g *Gateway) GetMetadata(ctx context.Context, key string) (blobstore.Metadata, error) {
	blobClient := g.client.ServiceClient().NewContainerClient(g.container).NewBlobClient(key)
	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		return nil, mapErr("get metadata", key, err)
	}

	md := blobstore.Metadata{}
	for k, v := range props.Metadata {
		if v != nil {
			md[strings.ToLower(k)] = *v
		}
	}
	return md, nil
}

// SetMetadata implements blobstore.Gateway.
func (g *Gateway) SetMetadata(ctx context.Context, key string, md blobstore.Metadata) error {
	blobClient := g.client.ServiceClient().NewContainerClient(g.container).NewBlobClient(key)

	meta := make(map[string]*string, len(md))
	for k, v := range md {
		v := v
		meta[k] = &v
	}
	if _, err := blobClient.SetMetadata(ctx, meta, nil); err != nil {
		return mapErr("set metadata", key, err)
	}
	return nil
}

// ListContainers implements blobstore.Gateway.
func (g *Gateway) ListContainers(ctx context.Context) ([]blobstore.ContainerInfo, error) {
	var out []blobstore.ContainerInfo
	pager := g.client.NewListContainersPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list containers: %w", err)
		}
		for _, item := range page.ContainerItems {
			if item.Name != nil {
				out = append(out, blobstore.ContainerInfo{Name: *item.Name})
			}
		}
	}
	return out, nil
}

// mapErr wraps SDK errors, translating blob-not-found into the gateway
// sentinel so callers never see Azure error codes.
func mapErr(op, key string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("%s %q: %w", op, key, blobstore.ErrNotFound)
	}
	return fmt.Errorf("%s %q: %w", op, key, err)
}
