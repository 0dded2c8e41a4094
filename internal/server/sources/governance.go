package sources

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/upstream"
)

const (
	onChainPath  = "/api/v1/listing/on-chain-posts"
	offChainPath = "/api/v1/listing/off-chain-posts"

	TypeProposal   = "proposal"
	TypeDiscussion = "discussion"
)

// GovernanceClient reads the governance listing API.
type GovernanceClient struct {
	rc *upstream.Client
}

// NewGovernanceClient creates a client for the given network
// (sent as the x-network header on every call).
func NewGovernanceClient(baseURL, network string, opts ...upstream.Option) *GovernanceClient {
	opts = append(opts, upstream.WithHeader("x-network", network))
	return &GovernanceClient{rc: upstream.New(baseURL, opts...)}
}

// Listing is one page of a listing endpoint.
type Listing struct {
	Count int               `json:"count"`
	Posts []json.RawMessage `json:"posts"`
}

// OnChainPage fetches one page of referenda on a track.
func (c *GovernanceClient) OnChainPage(ctx context.Context, trackNo, page, limit int) (*Listing, error) {
	q := url.Values{}
	q.Set("proposalType", "referendums_v2")
	q.Set("trackNo", strconv.Itoa(trackNo))
	q.Set("page", strconv.Itoa(page))
	q.Set("listingLimit", strconv.Itoa(limit))
	q.Set("sortBy", "newest")

	var l Listing
	if err := c.rc.GetJSON(ctx, "on-chain listing", onChainPath, q, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// OffChainPage fetches one page of discussions.
func (c *GovernanceClient) OffChainPage(ctx context.Context, page, limit int) (*Listing, error) {
	q := url.Values{}
	q.Set("proposalType", "discussions")
	q.Set("page", strconv.Itoa(page))
	q.Set("listingLimit", strconv.Itoa(limit))
	q.Set("sortBy", "newest")

	var l Listing
	if err := c.rc.GetJSON(ctx, "off-chain listing", offChainPath, q, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// OnChainAdapter syncs the referenda of one governance track.
type OnChainAdapter struct {
	client     *GovernanceClient
	track      string
	trackNo    int
	pageSize   int
	categorize *Categorizer
	log        logging.Logger
}

func NewOnChainAdapter(client *GovernanceClient, track string, trackNo, pageSize int, cat *Categorizer, log logging.Logger) *OnChainAdapter {
	return &OnChainAdapter{
		client:     client,
		track:      track,
		trackNo:    trackNo,
		pageSize:   pageSize,
		categorize: cat,
		log:        log.With("module", "sources", "collection", track),
	}
}

func (a *OnChainAdapter) Collection() models.Collection {
	return models.Collection{Name: a.track, Group: models.GroupOnChain, Kind: models.KindProposals}
}

// ChangeKey is the referendum status.
func (a *OnChainAdapter) ChangeKey(p models.Post) string {
	return rawString(p, "status")
}

func (a *OnChainAdapter) Fetch(ctx context.Context) FetchResult {
	posts, count, err := FetchAll(ctx, a.pageSize, func(ctx context.Context, page, limit int) ([]models.Post, int, error) {
		l, err := a.client.OnChainPage(ctx, a.trackNo, page, limit)
		if err != nil {
			return nil, 0, err
		}
		return a.normalizePage(ctx, l, (page-1)*limit), l.Count, nil
	})
	if err != nil {
		a.log.Error(ctx, "fetch failed", "error", err)
		return failed(err)
	}
	return FetchResult{Posts: posts, Count: count}
}

func (a *OnChainAdapter) normalizePage(ctx context.Context, l *Listing, offset int) []models.Post {
	out := make([]models.Post, 0, len(l.Posts))
	for i, raw := range l.Posts {
		f, err := DecodeFields(raw)
		if err != nil {
			a.log.Warn(ctx, "skipping undecodable post", "index", offset+i, "error", err)
			continue
		}
		p := models.Post{
			ID:              f.StringOr(fallbackID(offset+i), "post_id"),
			CreationDate:    f.String("created_at"),
			Title:           f.String("title"),
			Content:         f.FirstString("content", "description"),
			Type:            TypeProposal,
			SubType:         a.track,
			RequestedAmount: f.StringOr("0", "requestedAmount"),
			Reward:          "0",
			Submitter:       f.FirstString("proposer", "user_id", "username"),
			Raw:             raw,
		}
		p.Categories = f.Strings("tags")
		if len(p.Categories) == 0 {
			p.Categories = a.categorize.Categorize(p.Title, p.Content)
		}
		out = append(out, p)
	}
	return out
}

// DiscussionsAdapter syncs off-chain discussions.
type DiscussionsAdapter struct {
	client     *GovernanceClient
	pageSize   int
	categorize *Categorizer
	log        logging.Logger
}

func NewDiscussionsAdapter(client *GovernanceClient, pageSize int, cat *Categorizer, log logging.Logger) *DiscussionsAdapter {
	return &DiscussionsAdapter{
		client:     client,
		pageSize:   pageSize,
		categorize: cat,
		log:        log.With("module", "sources", "collection", "discussions"),
	}
}

func (a *DiscussionsAdapter) Collection() models.Collection {
	return models.Collection{Name: "discussions", Group: models.GroupOffChain, Kind: models.KindDiscussions}
}

// ChangeKey is the last edit timestamp, falling back to update and creation.
func (a *DiscussionsAdapter) ChangeKey(p models.Post) string {
	return rawString(p, "last_edited_at", "updated_at", "created_at")
}

func (a *DiscussionsAdapter) Fetch(ctx context.Context) FetchResult {
	posts, count, err := FetchAll(ctx, a.pageSize, func(ctx context.Context, page, limit int) ([]models.Post, int, error) {
		l, err := a.client.OffChainPage(ctx, page, limit)
		if err != nil {
			return nil, 0, err
		}
		return a.normalizePage(ctx, l, (page-1)*limit), l.Count, nil
	})
	if err != nil {
		a.log.Error(ctx, "fetch failed", "error", err)
		return failed(err)
	}
	return FetchResult{Posts: posts, Count: count}
}

func (a *DiscussionsAdapter) normalizePage(ctx context.Context, l *Listing, offset int) []models.Post {
	out := make([]models.Post, 0, len(l.Posts))
	for i, raw := range l.Posts {
		f, err := DecodeFields(raw)
		if err != nil {
			a.log.Warn(ctx, "skipping undecodable post", "index", offset+i, "error", err)
			continue
		}
		p := models.Post{
			ID:              f.StringOr(fallbackID(offset+i), "post_id"),
			CreationDate:    f.String("created_at"),
			Title:           f.String("title"),
			Content:         f.FirstString("content", "description"),
			Type:            TypeDiscussion,
			SubType:         f.String("topic", "name"),
			RequestedAmount: "0",
			Reward:          "0",
			Submitter:       f.FirstString("proposer", "user_id", "username"),
			Raw:             raw,
		}
		p.Categories = f.Strings("tags")
		if len(p.Categories) == 0 {
			p.Categories = a.categorize.Categorize(p.Title, p.Content)
		}
		out = append(out, p)
	}
	return out
}

// rawString reads the first non-empty top-level field of the post's raw
// payload.
func rawString(p models.Post, keys ...string) string {
	if len(p.Raw) == 0 {
		return ""
	}
	f, err := DecodeFields(p.Raw)
	if err != nil {
		return ""
	}
	return f.FirstString(keys...)
}
