package storage

import "context"

// Item is one child entry of a remote folder.
type Item struct {
	ID       string
	Name     string
	MimeType string
	IsFolder bool
}

// Client is the narrow surface of the external folder store the pipeline
// needs. Every call carries the access token explicitly because tokens are
// short-lived and re-acquired between stages.
type Client interface {
	// ListChildren returns the non-trashed entries directly under parentID.
	ListChildren(ctx context.Context, accessToken, parentID string) ([]Item, error)
	// CreateFolder creates a folder named name under parentID and returns
	// its id.
	CreateFolder(ctx context.Context, accessToken, name, parentID string) (string, error)
	// UploadFile uploads data as a file named name under parentID with the
	// given MIME type and returns the new file id.
	UploadFile(ctx context.Context, accessToken, name, parentID, mimeType string, data []byte) (string, error)
}

// RootID is the provider alias for the account's drive root.
const RootID = "root"
