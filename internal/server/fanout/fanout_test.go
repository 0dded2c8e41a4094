package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/snapshots"
	"github.com/dmitrijs2005/govsync/internal/server/storage/blob"
)

const (
	docA    = "1DocumentAAAAAA"
	docB    = "1DocumentBBBBBB"
	folderX = "1FolderXXXXXXXX"
	folderY = "1FolderYYYYYYYY"
)

type fakeDocs struct {
	mu        sync.Mutex
	exports   int
	downloads int
	failing   map[string]bool
	folders   map[string][]DriveFile
}

func (d *fakeDocs) ExportDocument(_ context.Context, id string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failing[id] {
		return nil, errors.New("export failed")
	}
	d.exports++
	return []byte("text of " + id), nil
}

func (d *fakeDocs) ListFolder(_ context.Context, id string) ([]DriveFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failing[id] {
		return nil, errors.New("list failed")
	}
	return d.folders[id], nil
}

func (d *fakeDocs) Download(_ context.Context, id string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failing[id] {
		return nil, errors.New("download failed")
	}
	d.downloads++
	return []byte("bytes of " + id), nil
}

func (d *fakeDocs) fetches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exports + d.downloads
}

var events = models.Collection{Name: "events", Group: models.GroupOffChain, Kind: models.KindEvents}

func newFanout(docs DocumentSource) (*Fanout, *snapshots.Store, *blob.MemoryStore) {
	mem := blob.NewMemoryStore()
	store := snapshots.NewStore(mem)
	return New(store, docs, 2, logging.Discard()), store, mem
}

func statusKey(p models.Post) string { return p.SubType }

func TestFanout_ManifestDeduplication(t *testing.T) {
	docs := &fakeDocs{}
	f, store, _ := newFanout(docs)
	ctx := context.Background()

	job := Job{
		Collection: events,
		Posts: []models.Post{{
			ID:      "7",
			SubType: "Planned",
			Content: "see https://docs.google.com/document/d/" + docA + "/edit and https://docs.google.com/document/d/" + docB,
		}},
		ChangeKey: statusKey,
	}

	first := f.Process(ctx, job)
	assert.Equal(t, 2, first.Downloaded)
	assert.Equal(t, 2, docs.fetches())

	m, err := store.LoadManifest(ctx, events, "7")
	require.NoError(t, err)
	assert.Equal(t, models.Manifest{
		docA: DocumentURL(docA),
		docB: DocumentURL(docB),
	}, m)

	second := f.Process(ctx, job)
	assert.Equal(t, 0, second.Downloaded)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 2, docs.fetches())

	stored, err := store.ListDocuments(ctx, events, "7")
	require.NoError(t, err)
	var rels []string
	for _, d := range stored {
		rels = append(rels, d.Rel)
	}
	assert.ElementsMatch(t, []string{docA + ".txt", docB + ".txt", PostDocumentName("7", "Planned")}, rels)
}

func TestFanout_FailureIsolation(t *testing.T) {
	docs := &fakeDocs{failing: map[string]bool{docA: true}}
	f, store, _ := newFanout(docs)
	ctx := context.Background()

	job := Job{
		Collection: events,
		Posts: []models.Post{
			{ID: "1", Content: "https://docs.google.com/document/d/" + docA + " https://docs.google.com/document/d/" + docB},
			{ID: "2", Content: "https://docs.google.com/document/d/" + docB},
		},
	}

	r := f.Process(ctx, job)
	assert.Equal(t, 2, r.Posts)
	assert.Equal(t, 2, r.Downloaded)
	assert.Equal(t, 1, r.Failed)

	m1, err := store.LoadManifest(ctx, events, "1")
	require.NoError(t, err)
	assert.NotContains(t, m1, docA)
	assert.Contains(t, m1, docB)

	m2, err := store.LoadManifest(ctx, events, "2")
	require.NoError(t, err)
	assert.Contains(t, m2, docB)

	// the failed document is retried once the source recovers
	docs.mu.Lock()
	docs.failing = nil
	docs.mu.Unlock()

	r = f.Process(ctx, job)
	assert.Equal(t, 1, r.Downloaded)
	assert.Equal(t, 2, r.Skipped)
}

func TestFanout_NestedFolders(t *testing.T) {
	docs := &fakeDocs{folders: map[string][]DriveFile{
		folderX: {
			{ID: "f1", Name: "budget.pdf", MimeType: "application/pdf"},
			{ID: folderY, Name: "Milestone 1", MimeType: MimeFolder},
		},
		folderY: {
			{ID: "d1", Name: "report", MimeType: MimeDocument},
			{ID: folderX, Name: "loop", MimeType: MimeFolder},
		},
	}}
	f, store, _ := newFanout(docs)
	ctx := context.Background()

	r := f.Process(ctx, Job{
		Collection: events,
		Posts:      []models.Post{{ID: "9", Content: "https://drive.google.com/drive/folders/" + folderX}},
	})
	assert.Equal(t, 2, r.Downloaded)
	assert.Equal(t, 0, r.Failed)

	b, err := store.GetDocument(ctx, events.FolderPrefix("9")+"Milestone 1/report.txt")
	require.NoError(t, err)
	assert.Equal(t, "text of d1", string(b))

	ok, err := store.HasDocument(ctx, events, "9", "budget.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	m, err := store.LoadManifest(ctx, events, "9")
	require.NoError(t, err)
	assert.Equal(t, FileURL("f1"), m["f1"])
	assert.Equal(t, FileURL("d1"), m["d1"])
	assert.NotContains(t, m, folderX)
}

func TestFanout_SelectsModifiedPosts(t *testing.T) {
	docs := &fakeDocs{}
	f, store, _ := newFanout(docs)
	ctx := context.Background()

	r := f.Process(ctx, Job{
		Collection: events,
		Posts: []models.Post{
			{ID: "1", Content: "https://docs.google.com/document/d/" + docA},
			{ID: "2", Content: "https://docs.google.com/document/d/" + docB},
		},
		IDs: []string{"2"},
	})
	assert.Equal(t, 1, r.Posts)
	assert.Equal(t, 1, docs.fetches())

	docs1, err := store.ListDocuments(ctx, events, "1")
	require.NoError(t, err)
	assert.Empty(t, docs1)
}

func TestFanout_PostDocumentVersioned(t *testing.T) {
	f, store, mem := newFanout(&fakeDocs{})
	ctx := context.Background()

	p := models.Post{ID: "3", SubType: "Planned", VectorFileID: "file-old"}
	job := Job{Collection: events, Posts: []models.Post{p}, ChangeKey: statusKey}

	f.Process(ctx, job)
	puts := mem.Puts()
	f.Process(ctx, job)
	assert.Equal(t, puts, mem.Puts())

	job.Posts[0].SubType = "Done"
	f.Process(ctx, job)

	docs, err := store.ListDocuments(ctx, events, "3")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	b, err := store.GetDocument(ctx, events.FolderPrefix("3")+PostDocumentName("3", "Done"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"subType":"Done"`)
	assert.Contains(t, string(b), `"vectorFileId":""`)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a_b", safeName("a/b", "id"))
	assert.Equal(t, "id", safeName("  ", "id"))
	assert.Equal(t, "id-indexed.json", safeName(models.IndexFile, "id"))
}
