package models

// Snapshot is the persisted state of one collection.
//
// ModifiedIDs lists the posts changed by the most recent write only; it is
// reset on every rewrite.
type Snapshot struct {
	ModifiedIDs []string `json:"modifiedPostsIds"`
	Count       int      `json:"count"`
	Posts       []Post   `json:"posts"`
}

// Index returns the posts keyed by id.
func (s *Snapshot) Index() map[string]*Post {
	idx := make(map[string]*Post, len(s.Posts))
	for i := range s.Posts {
		idx[s.Posts[i].ID] = &s.Posts[i]
	}
	return idx
}
