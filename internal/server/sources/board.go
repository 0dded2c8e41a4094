package sources

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/upstream"
)

const (
	TypeEvent  = "event"
	TypeMeetup = "meetup"
)

// BoardClient reads cards from the collaboration-board API.
type BoardClient struct {
	rc *upstream.Client
}

// NewBoardClient creates a client authenticated with an API key and token
// passed as query parameters.
func NewBoardClient(baseURL, apiKey, token string, opts ...upstream.Option) *BoardClient {
	opts = append(opts, upstream.WithQuery("key", apiKey), upstream.WithQuery("token", token))
	return &BoardClient{rc: upstream.New(baseURL, opts...)}
}

// BoardList is a column of a board.
type BoardList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListCards returns every card of a list.
func (c *BoardClient) ListCards(ctx context.Context, listID string) ([]json.RawMessage, error) {
	var cards []json.RawMessage
	if err := c.rc.GetJSON(ctx, "list cards", "/1/lists/"+listID+"/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// BoardCards returns every open card of a board.
func (c *BoardClient) BoardCards(ctx context.Context, boardID string) ([]json.RawMessage, error) {
	var cards []json.RawMessage
	if err := c.rc.GetJSON(ctx, "board cards", "/1/boards/"+boardID+"/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// BoardLists returns the lists of a board.
func (c *BoardClient) BoardLists(ctx context.Context, boardID string) ([]BoardList, error) {
	var lists []BoardList
	if err := c.rc.GetJSON(ctx, "board lists", "/1/boards/"+boardID+"/lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// EventsAdapter syncs the cards of the events list.
type EventsAdapter struct {
	client     *BoardClient
	listID     string
	categorize *Categorizer
	log        logging.Logger
}

func NewEventsAdapter(client *BoardClient, listID string, cat *Categorizer, log logging.Logger) *EventsAdapter {
	return &EventsAdapter{
		client:     client,
		listID:     listID,
		categorize: cat,
		log:        log.With("module", "sources", "collection", "events"),
	}
}

func (a *EventsAdapter) Collection() models.Collection {
	return models.Collection{Name: "events", Group: models.GroupOffChain, Kind: models.KindEvents}
}

// ChangeKey is the card's last activity timestamp.
func (a *EventsAdapter) ChangeKey(p models.Post) string {
	return rawString(p, "dateLastActivity")
}

func (a *EventsAdapter) Fetch(ctx context.Context) FetchResult {
	cards, err := a.client.ListCards(ctx, a.listID)
	if err != nil {
		a.log.Error(ctx, "fetch failed", "error", err)
		return failed(err)
	}

	posts := make([]models.Post, 0, len(cards))
	for i, raw := range cards {
		f, err := DecodeFields(raw)
		if err != nil {
			a.log.Warn(ctx, "skipping undecodable card", "index", i, "error", err)
			continue
		}
		p := normalizeCard(f, raw, i)
		p.Type = TypeEvent
		if labels := f.Strings("labels"); len(labels) > 0 {
			p.SubType = labels[0]
		}
		p.Categories = a.categorize.Categorize(p.Title, p.Content)
		posts = append(posts, p)
	}
	return FetchResult{Posts: posts, Count: len(cards)}
}

// MeetupsAdapter syncs the cards of the meetups board. A card's status is
// the name of the list it sits in.
type MeetupsAdapter struct {
	client     *BoardClient
	boardID    string
	categorize *Categorizer
	log        logging.Logger
}

func NewMeetupsAdapter(client *BoardClient, boardID string, cat *Categorizer, log logging.Logger) *MeetupsAdapter {
	return &MeetupsAdapter{
		client:     client,
		boardID:    boardID,
		categorize: cat,
		log:        log.With("module", "sources", "collection", "meetups"),
	}
}

func (a *MeetupsAdapter) Collection() models.Collection {
	return models.Collection{Name: "meetups", Group: models.GroupOffChain, Kind: models.KindMeetups}
}

// ChangeKey is the meetup status.
func (a *MeetupsAdapter) ChangeKey(p models.Post) string {
	return p.SubType
}

func (a *MeetupsAdapter) Fetch(ctx context.Context) FetchResult {
	lists, err := a.client.BoardLists(ctx, a.boardID)
	if err != nil {
		a.log.Error(ctx, "fetch lists failed", "error", err)
		return failed(err)
	}
	status := make(map[string]string, len(lists))
	for _, l := range lists {
		status[l.ID] = l.Name
	}

	cards, err := a.client.BoardCards(ctx, a.boardID)
	if err != nil {
		a.log.Error(ctx, "fetch cards failed", "error", err)
		return failed(err)
	}

	posts := make([]models.Post, 0, len(cards))
	for i, raw := range cards {
		f, err := DecodeFields(raw)
		if err != nil {
			a.log.Warn(ctx, "skipping undecodable card", "index", i, "error", err)
			continue
		}
		p := normalizeCard(f, raw, i)
		p.Type = TypeMeetup
		p.SubType = status[f.String("idList")]
		p.Categories = a.categorize.Categorize(p.Title, p.Content)
		posts = append(posts, p)
	}
	return FetchResult{Posts: posts, Count: len(cards)}
}

func normalizeCard(f Fields, raw json.RawMessage, i int) models.Post {
	id := f.StringOr(fallbackID(i), "id")
	p := models.Post{
		ID:              id,
		CreationDate:    cardCreated(id),
		Title:           f.String("name"),
		Content:         f.String("desc"),
		RequestedAmount: "0",
		Reward:          "0",
		Submitter:       f.FirstString("idMemberCreator"),
		Raw:             raw,
	}
	if p.Submitter == "" {
		if members := f.Strings("idMembers"); len(members) > 0 {
			p.Submitter = members[0]
		}
	}
	return p
}

// cardCreated decodes the creation time embedded in the first eight hex
// digits of a board object id.
func cardCreated(id string) string {
	if len(id) < 8 {
		return ""
	}
	sec, err := strconv.ParseInt(id[:8], 16, 64)
	if err != nil {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
