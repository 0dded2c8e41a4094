package models

import (
	"fmt"
	"strings"
)

// Group separates on-chain collections from off-chain ones. It is also the
// top-level prefix of every key the collection owns in the blob store.
type Group string

const (
	GroupOnChain  Group = "OnChainPosts"
	GroupOffChain Group = "OffChainPosts"
)

// Kind names the upstream shape a collection is fetched from.
type Kind string

const (
	KindProposals   Kind = "proposals"
	KindDiscussions Kind = "discussions"
	KindEvents      Kind = "events"
	KindMeetups     Kind = "meetups"
)

// Collection is a named grouping of posts from one source.
type Collection struct {
	Name  string
	Group Group
	Kind  Kind
}

func (c Collection) String() string {
	return string(c.Group) + "/" + c.Name
}

// SnapshotKey is where the collection's list document lives,
// e.g. OffChainPosts/events/events-List.json.
func (c Collection) SnapshotKey() string {
	return fmt.Sprintf("%s/%s/%s-List.json", c.Group, c.Name, c.Name)
}

// FolderPrefix is the DocumentFolder prefix of one post, with a trailing slash.
func (c Collection) FolderPrefix(postID string) string {
	return fmt.Sprintf("%s/%s/docs/%s/", c.Group, c.Name, sanitizeSegment(postID))
}

func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
