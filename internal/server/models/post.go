// Package models defines the records that flow through the sync engine:
// normalized posts, persisted collection snapshots, the tabular mirror rows
// and the per-post document folder manifests.
package models

import "encoding/json"

// Post is a normalized content record produced by a source adapter.
type Post struct {
	// ID is stable within one collection: a numeric proposal id, a board item
	// id, or a synthetic "index-N" fallback.
	ID string `json:"id"`
	// CreationDate is kept in the source-native format; it is only used for
	// ordering and filtering.
	CreationDate string   `json:"creationDate"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Type         string   `json:"type"`
	SubType      string   `json:"subType"`
	Categories   []string `json:"categories"`
	// Monetary fields stay decimal strings to avoid precision loss.
	RequestedAmount string `json:"requestedAmount"`
	Reward          string `json:"reward"`
	Submitter       string `json:"submitter"`
	// VectorFileID is assigned by the vector sync once the post's own
	// document reaches the index.
	VectorFileID string          `json:"vectorFileId"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// Text returns the free-text fields scanned for document links and keywords.
func (p Post) Text() string {
	return p.Title + "\n" + p.Content
}
