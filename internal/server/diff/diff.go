// Package diff decides whether a freshly fetched collection differs from the
// stored snapshot and computes the set of new or changed post ids.
//
// A missing or unreadable snapshot, or a count that moved, forces a full
// rewrite with an empty modified set. With equal counts only posts whose
// change key moved (or that are new) are reported, and the snapshot is
// rewritten only when that set is non-empty. Posts absent from the fresh
// fetch are never dropped on the equal-count path.
package diff

import "github.com/dmitrijs2005/govsync/internal/server/models"

// ChangeKeyFunc extracts the field whose movement marks a post as changed,
// e.g. a status or a last-modified timestamp.
type ChangeKeyFunc func(models.Post) string

type Result struct {
	// Changed reports whether Snapshot must be written.
	Changed     bool
	ModifiedIDs []string
	// Snapshot is the document to persist when Changed, or the stored one.
	Snapshot *models.Snapshot
}

// Compute diffs fresh against stored. stored is nil when there is no usable
// snapshot. The fresh slice is not modified.
func Compute(fresh []models.Post, freshCount int, stored *models.Snapshot, key ChangeKeyFunc) Result {
	if stored == nil || stored.Count != freshCount {
		return Result{
			Changed:     true,
			ModifiedIDs: []string{},
			Snapshot: &models.Snapshot{
				ModifiedIDs: []string{},
				Count:       freshCount,
				Posts:       carryForward(fresh, stored, key),
			},
		}
	}

	old := stored.Index()
	modified := []string{}
	seen := make(map[string]struct{}, len(fresh))
	for _, p := range fresh {
		seen[p.ID] = struct{}{}
		o, ok := old[p.ID]
		if !ok || key(*o) != key(p) {
			modified = append(modified, p.ID)
		}
	}

	if len(modified) == 0 {
		return Result{Changed: false, ModifiedIDs: modified, Snapshot: stored}
	}

	posts := carryForward(fresh, stored, key)
	for _, o := range stored.Posts {
		if _, ok := seen[o.ID]; !ok {
			posts = append(posts, o)
		}
	}

	return Result{
		Changed:     true,
		ModifiedIDs: modified,
		Snapshot: &models.Snapshot{
			ModifiedIDs: modified,
			Count:       freshCount,
			Posts:       posts,
		},
	}
}

// carryForward copies fresh and keeps the vector file id of every post whose
// change key did not move since the stored snapshot.
func carryForward(fresh []models.Post, stored *models.Snapshot, key ChangeKeyFunc) []models.Post {
	out := make([]models.Post, len(fresh))
	copy(out, fresh)
	if stored == nil {
		return out
	}

	old := stored.Index()
	for i := range out {
		o, ok := old[out[i].ID]
		if ok && out[i].VectorFileID == "" && key(*o) == key(out[i]) {
			out[i].VectorFileID = o.VectorFileID
		}
	}
	return out
}
