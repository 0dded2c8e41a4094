package vectorsync

import (
	"context"
	"net/url"

	"github.com/dmitrijs2005/govsync/internal/server/upstream"
)

// VectorStore is the subset of the embeddings provider the syncer needs.
type VectorStore interface {
	// UploadFile stores content and returns the provider's file id.
	UploadFile(ctx context.Context, name string, content []byte) (string, error)
	// CreateFileBatch attaches uploaded files to the target vector store.
	CreateFileBatch(ctx context.Context, fileIDs []string) (string, error)
}

// Client talks to an OpenAI-compatible files and vector-store API.
type Client struct {
	rc      *upstream.Client
	storeID string
}

func NewClient(baseURL, apiKey, storeID string, opts ...upstream.Option) *Client {
	opts = append(opts, upstream.WithBearer(apiKey), upstream.WithHeader("OpenAI-Beta", "assistants=v2"))
	return &Client{rc: upstream.New(baseURL, opts...), storeID: storeID}
}

type objectID struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) UploadFile(ctx context.Context, name string, content []byte) (string, error) {
	var out objectID
	fields := map[string]string{"purpose": "assistants"}
	if err := c.rc.PostFile(ctx, "upload file", "/files", "file", name, content, fields, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) CreateFileBatch(ctx context.Context, fileIDs []string) (string, error) {
	var out objectID
	in := map[string][]string{"file_ids": fileIDs}
	if err := c.rc.PostJSON(ctx, "create file batch", "/vector_stores/"+url.PathEscape(c.storeID)+"/file_batches", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}
