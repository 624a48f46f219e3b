package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fabdesk/backup-exporter/internal/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// Client implements storage.Client on top of the Google Drive v3 API.
// A Drive service is built per call around the supplied access token; the
// underlying HTTP transport is reused by the API client library.
type Client struct{}

func New() *Client {
	return &Client{}
}

func (c *Client) service(ctx context.Context, accessToken string) (*drive.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := drive.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("drive service init failed: %w", err)
	}
	return svc, nil
}

func (c *Client) ListChildren(ctx context.Context, accessToken, parentID string) ([]storage.Item, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(parentID))

	var items []storage.Item
	pageToken := ""
	for {
		call := svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType)").
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list children of %s failed: %w", parentID, err)
		}
		for _, f := range list.Files {
			items = append(items, storage.Item{
				ID:       f.Id,
				Name:     f.Name,
				MimeType: f.MimeType,
				IsFolder: f.MimeType == folderMimeType,
			})
		}
		if list.NextPageToken == "" {
			return items, nil
		}
		pageToken = list.NextPageToken
	}
}

func (c *Client) CreateFolder(ctx context.Context, accessToken, name, parentID string) (string, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}
	created, err := svc.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder %q failed: %w", name, err)
	}
	return created.Id, nil
}

func (c *Client) UploadFile(ctx context.Context, accessToken, name, parentID, mimeType string, data []byte) (string, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	file := &drive.File{
		Name:    name,
		Parents: []string{parentID},
	}
	created, err := svc.Files.Create(file).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %q failed: %w", name, err)
	}
	return created.Id, nil
}

// escapeQuery escapes single quotes for embedding in a Drive query string.
func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
