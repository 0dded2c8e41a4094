package models

// IndexedRecord is the tabular mirror of a Post, keyed by
// (PostID, CreationDate). It is only ever derived from a snapshot.
type IndexedRecord struct {
	PostID          string
	CreationDate    string
	Collection      string
	Title           string
	Type            string
	SubType         string
	Categories      []string
	RequestedAmount string
	Reward          string
	Submitter       string
	VectorFileID    string
	DocsLinks       []string
}
