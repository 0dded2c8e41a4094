// Package fanout materializes the documents referenced by posts into the
// posts' DocumentFolders.
//
// Every processed post gets its own serialized form as post-<fingerprint>.json.
// Document links are exported as text; folder links are walked depth-first,
// nested folder names becoming path segments. docs_urls.json records every
// document that was stored, so later runs skip it. A failed document is
// simply left out of the manifest and retried on the next run.
package fanout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/snapshots"
)

const (
	DefaultConcurrency = 4
	maxFolderDepth     = 8
	textContentType    = "text/plain; charset=utf-8"
	jsonContentType    = "application/json"
	binaryContentType  = "application/octet-stream"
)

// Job describes one fan-out run over a collection.
type Job struct {
	Collection models.Collection
	Posts      []models.Post
	// IDs restricts the run to these posts; empty means every post.
	IDs []string
	// ChangeKey names the post document, so a changed post gets a new file.
	ChangeKey func(models.Post) string
}

// Report summarizes a run.
type Report struct {
	Posts      int
	Downloaded int
	Skipped    int
	Failed     int
}

type Fanout struct {
	store       *snapshots.Store
	docs        DocumentSource
	concurrency int
	log         logging.Logger
}

func New(store *snapshots.Store, docs DocumentSource, concurrency int, log logging.Logger) *Fanout {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Fanout{
		store:       store,
		docs:        docs,
		concurrency: concurrency,
		log:         log.With("module", "fanout"),
	}
}

type counters struct {
	downloaded atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
}

// Process fans out the selected posts with bounded concurrency. Failures are
// logged and counted, never returned.
func (f *Fanout) Process(ctx context.Context, job Job) Report {
	posts := selectPosts(job.Posts, job.IDs)

	var cnt counters
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i := range posts {
		p := posts[i]
		g.Go(func() error {
			f.processPost(ctx, job, p, &cnt)
			return nil
		})
	}
	_ = g.Wait()

	r := Report{
		Posts:      len(posts),
		Downloaded: int(cnt.downloaded.Load()),
		Skipped:    int(cnt.skipped.Load()),
		Failed:     int(cnt.failed.Load()),
	}
	f.log.Info(ctx, "fan-out finished",
		"collection", job.Collection.String(),
		"posts", r.Posts,
		"downloaded", r.Downloaded,
		"skipped", r.Skipped,
		"failed", r.Failed,
	)
	return r
}

func selectPosts(posts []models.Post, ids []string) []models.Post {
	if len(ids) == 0 {
		return posts
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Post
	for _, p := range posts {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// postRun is the state of one post's fan-out. It is owned by a single
// goroutine.
type postRun struct {
	job      Job
	post     models.Post
	manifest models.Manifest
	dirty    bool
	visited  map[string]bool
	cnt      *counters
	log      logging.Logger
}

func (f *Fanout) processPost(ctx context.Context, job Job, p models.Post, cnt *counters) {
	log := f.log.With("collection", job.Collection.String(), "post_id", p.ID)

	if err := f.writePostDocument(ctx, job, p); err != nil {
		cnt.failed.Add(1)
		log.Error(ctx, "write post document failed", "error", err)
	}

	docIDs := ExtractDocumentIDs(p.Text())
	folderIDs := ExtractFolderIDs(p.Text())
	if len(docIDs) == 0 && len(folderIDs) == 0 {
		return
	}

	manifest, err := f.store.LoadManifest(ctx, job.Collection, p.ID)
	if err != nil {
		cnt.failed.Add(1)
		log.Error(ctx, "load manifest failed", "error", err)
		return
	}

	run := &postRun{job: job, post: p, manifest: manifest, visited: map[string]bool{}, cnt: cnt, log: log}

	for _, id := range docIDs {
		f.storeDocument(ctx, run, DriveFile{ID: id, Name: id, MimeType: MimeDocument}, "", DocumentURL(id))
	}
	for _, id := range folderIDs {
		f.walkFolder(ctx, run, id, "", 0)
	}

	if !run.dirty {
		return
	}
	if err := f.store.SaveManifest(ctx, job.Collection, p.ID, run.manifest); err != nil {
		cnt.failed.Add(1)
		log.Error(ctx, "save manifest failed", "error", err)
	}
}

// writePostDocument stores the post itself unless this version is already
// present.
func (f *Fanout) writePostDocument(ctx context.Context, job Job, p models.Post) error {
	key := ""
	if job.ChangeKey != nil {
		key = job.ChangeKey(p)
	}
	rel := PostDocumentName(p.ID, key)

	ok, err := f.store.HasDocument(ctx, job.Collection, p.ID, rel)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	p.VectorFileID = ""
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode post: %w", err)
	}
	return f.store.PutDocument(ctx, job.Collection, p.ID, rel, b, jsonContentType)
}

// PostDocumentName is the folder-relative name of a post's own document
// for the given change key.
func PostDocumentName(postID, changeKey string) string {
	sum := sha256.Sum256([]byte(postID + "\x00" + changeKey))
	return "post-" + hex.EncodeToString(sum[:6]) + ".json"
}

// IsPostDocument reports whether rel names a post's own document.
func IsPostDocument(rel string) bool {
	return !strings.Contains(rel, "/") && strings.HasPrefix(rel, "post-") && strings.HasSuffix(rel, ".json")
}

func (f *Fanout) walkFolder(ctx context.Context, run *postRun, folderID, dir string, depth int) {
	if run.visited[folderID] {
		return
	}
	run.visited[folderID] = true
	if depth >= maxFolderDepth {
		run.log.Warn(ctx, "folder nesting too deep", "folder_id", folderID, "path", dir)
		return
	}

	children, err := f.docs.ListFolder(ctx, folderID)
	if err != nil {
		run.cnt.failed.Add(1)
		run.log.Error(ctx, "list folder failed", "folder_id", folderID, "error", err)
		return
	}

	for _, child := range children {
		if child.IsFolder() {
			f.walkFolder(ctx, run, child.ID, dir+safeName(child.Name, child.ID)+"/", depth+1)
			continue
		}
		f.storeDocument(ctx, run, child, dir, FileURL(child.ID))
	}
}

func (f *Fanout) storeDocument(ctx context.Context, run *postRun, file DriveFile, dir, sourceURL string) {
	if _, ok := run.manifest[file.ID]; ok {
		run.cnt.skipped.Add(1)
		return
	}

	var (
		body        []byte
		err         error
		rel         = dir + safeName(file.Name, file.ID)
		contentType = binaryContentType
	)
	if file.MimeType == MimeDocument {
		body, err = f.docs.ExportDocument(ctx, file.ID)
		rel += ".txt"
		contentType = textContentType
	} else {
		body, err = f.docs.Download(ctx, file.ID)
	}
	if err != nil {
		run.cnt.failed.Add(1)
		run.log.Error(ctx, "fetch document failed", "document_id", file.ID, "error", err)
		return
	}

	if err := f.store.PutDocument(ctx, run.job.Collection, run.post.ID, rel, body, contentType); err != nil {
		run.cnt.failed.Add(1)
		run.log.Error(ctx, "store document failed", "document_id", file.ID, "error", err)
		return
	}

	run.manifest[file.ID] = sourceURL
	run.dirty = true
	run.cnt.downloaded.Add(1)
}

func safeName(name, fallback string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "/", "_"))
	if name == "" || name == "." || name == ".." {
		return fallback
	}
	if models.IsMetadata(name) {
		return fallback + "-" + name
	}
	return name
}
