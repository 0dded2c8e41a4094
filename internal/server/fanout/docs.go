package fanout

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/govsync/internal/server/upstream"
)

const (
	MimeFolder   = "application/vnd.google-apps.folder"
	MimeDocument = "application/vnd.google-apps.document"
)

// DriveFile is an entry of a drive folder.
type DriveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

func (f DriveFile) IsFolder() bool { return f.MimeType == MimeFolder }

// DocumentSource resolves document and folder ids to content.
type DocumentSource interface {
	// ExportDocument returns a collaborative document as plain text.
	ExportDocument(ctx context.Context, id string) ([]byte, error)
	// ListFolder returns the direct children of a folder.
	ListFolder(ctx context.Context, id string) ([]DriveFile, error)
	// Download returns the bytes of a stored file.
	Download(ctx context.Context, id string) ([]byte, error)
}

// DocsClient reads the document service's v3 file API with an API key.
type DocsClient struct {
	rc *upstream.Client
}

func NewDocsClient(baseURL, apiKey string, opts ...upstream.Option) *DocsClient {
	opts = append(opts, upstream.WithQuery("key", apiKey))
	return &DocsClient{rc: upstream.New(baseURL, opts...)}
}

func (c *DocsClient) ExportDocument(ctx context.Context, id string) ([]byte, error) {
	q := url.Values{"mimeType": {"text/plain"}}
	return c.rc.GetBytes(ctx, "export document", "/drive/v3/files/"+url.PathEscape(id)+"/export", q)
}

func (c *DocsClient) ListFolder(ctx context.Context, id string) ([]DriveFile, error) {
	var out []DriveFile
	token := ""
	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", id))
		q.Set("fields", "nextPageToken,files(id,name,mimeType)")
		q.Set("pageSize", "1000")
		if token != "" {
			q.Set("pageToken", token)
		}

		var page struct {
			NextPageToken string      `json:"nextPageToken"`
			Files         []DriveFile `json:"files"`
		}
		if err := c.rc.GetJSON(ctx, "list folder", "/drive/v3/files", q, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Files...)
		if page.NextPageToken == "" {
			return out, nil
		}
		token = page.NextPageToken
	}
}

func (c *DocsClient) Download(ctx context.Context, id string) ([]byte, error) {
	q := url.Values{"alt": {"media"}}
	return c.rc.GetBytes(ctx, "download file", "/drive/v3/files/"+url.PathEscape(id), q)
}
