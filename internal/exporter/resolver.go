package exporter

import (
	"context"
	"fmt"

	"github.com/fabdesk/backup-exporter/internal/storage"
)

// FolderResolver maps a (name, parent) pair to a remote folder id, creating
// the folder when it does not exist yet. The existence check always precedes
// creation, so resolution is idempotent under retry. The cache is scoped to
// one run and exists to spare repeated list calls when many items share the
// same sub-folder (one entry per distinct design number or job id).
type FolderResolver struct {
	client storage.Client
	cache  map[string]string
}

func NewFolderResolver(client storage.Client) *FolderResolver {
	return &FolderResolver{
		client: client,
		cache:  make(map[string]string),
	}
}

// Resolve returns the id of the folder named name under parentID, creating
// it if absent.
func (r *FolderResolver) Resolve(ctx context.Context, token, name, parentID string) (string, error) {
	children, err := r.client.ListChildren(ctx, token, parentID)
	if err != nil {
		return "", fmt.Errorf("list folder %q: %w", name, err)
	}
	for _, child := range children {
		if child.IsFolder && child.Name == name {
			return child.ID, nil
		}
	}

	id, err := r.client.CreateFolder(ctx, token, name, parentID)
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return id, nil
}

// ResolveCached memoizes Resolve for the lifetime of the run.
func (r *FolderResolver) ResolveCached(ctx context.Context, token, name, parentID string) (string, error) {
	key := parentID + "/" + name
	if id, ok := r.cache[key]; ok {
		return id, nil
	}
	id, err := r.Resolve(ctx, token, name, parentID)
	if err != nil {
		return "", err
	}
	r.cache[key] = id
	return id, nil
}
