package models

import "path"

const (
	// ManifestFile maps resolved document id to source URL.
	ManifestFile = "docs_urls.json"
	// IndexFile maps folder-relative document path to vector-store file id.
	IndexFile = "indexed.json"
)

// Manifest is the content of docs_urls.json.
type Manifest map[string]string

// VectorIndex is the content of indexed.json: the per-document marker set
// once a document has been submitted to the vector store.
type VectorIndex map[string]string

// Document is a file in a DocumentFolder.
type Document struct {
	Collection Collection
	PostID     string
	// Key is the full blob key; Rel is relative to the folder prefix.
	Key string
	Rel string
}

// Name is the base file name of the document.
func (d Document) Name() string {
	return path.Base(d.Rel)
}

// IsMetadata reports whether rel names one of the folder's bookkeeping files.
func IsMetadata(rel string) bool {
	return rel == ManifestFile || rel == IndexFile
}
