package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/govsync/internal/common"
	"github.com/dmitrijs2005/govsync/internal/logging"
	"github.com/dmitrijs2005/govsync/internal/server/config"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/upstream"
)

func listingServer(t *testing.T, total int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "polkadot", r.Header.Get("x-network"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("listingLimit"))
		start := (page - 1) * limit
		end := min(start+limit, total)

		posts := make([]map[string]any, 0, limit)
		for i := start; i < end; i++ {
			posts = append(posts, map[string]any{
				"post_id":    i,
				"title":      fmt.Sprintf("Proposal %d", i),
				"created_at": "2025-01-01T00:00:00Z",
				"status":     "Deciding",
				"proposer":   "14abc",
				"username":   "alice",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": total, "posts": posts})
	}))
}

func TestOnChainAdapter_FetchAllPages(t *testing.T) {
	var calls atomic.Int32
	srv := listingServer(t, 250, &calls)
	defer srv.Close()

	client := NewGovernanceClient(srv.URL, "polkadot")
	a := NewOnChainAdapter(client, "treasurer", 11, 100, NewCategorizer(config.DefaultCategories(), "Other"), logging.Discard())

	res := a.Fetch(context.Background())
	require.False(t, res.Failed)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 250, res.Count)
	require.Len(t, res.Posts, 250)

	p := res.Posts[0]
	assert.Equal(t, "0", p.ID)
	assert.Equal(t, TypeProposal, p.Type)
	assert.Equal(t, "treasurer", p.SubType)
	assert.Equal(t, "14abc", p.Submitter)
	assert.Equal(t, "0", p.RequestedAmount)
	assert.Equal(t, []string{"Other"}, p.Categories)
	assert.Equal(t, "Deciding", a.ChangeKey(p))
	assert.Equal(t, "249", res.Posts[249].ID)

	assert.Equal(t, models.Collection{Name: "treasurer", Group: models.GroupOnChain, Kind: models.KindProposals}, a.Collection())
}

func TestOnChainAdapter_QueryParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, onChainPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "referendums_v2", q.Get("proposalType"))
		assert.Equal(t, "33", q.Get("trackNo"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "50", q.Get("listingLimit"))
		_, _ = w.Write([]byte(`{"count":1,"posts":[{"title":"No id","tags":[{"name":"Grants"}],"user_id":7}]}`))
	}))
	defer srv.Close()

	a := NewOnChainAdapter(NewGovernanceClient(srv.URL, "polkadot"), "medium-spender", 33, 50, NewCategorizer(nil, "Other"), logging.Discard())
	res := a.Fetch(context.Background())

	require.False(t, res.Failed)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "index-0", res.Posts[0].ID)
	assert.Equal(t, []string{"Grants"}, res.Posts[0].Categories)
	assert.Equal(t, "7", res.Posts[0].Submitter)
}

func TestOnChainAdapter_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewOnChainAdapter(NewGovernanceClient(srv.URL, "polkadot"), "root", 0, 100, NewCategorizer(nil, "Other"), logging.Discard())
	res := a.Fetch(context.Background())

	assert.True(t, res.Failed)
	assert.Nil(t, res.Posts)
	assert.ErrorIs(t, res.Err, common.ErrUpstream)

	var apiErr *upstream.APIError
	require.ErrorAs(t, res.Err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "on-chain listing", apiErr.Op)
}

func TestOnChainAdapter_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	a := NewOnChainAdapter(NewGovernanceClient(srv.URL, "polkadot"), "root", 0, 100, NewCategorizer(nil, "Other"), logging.Discard())
	res := a.Fetch(context.Background())

	assert.True(t, res.Failed)
	assert.ErrorIs(t, res.Err, common.ErrUpstream)
}

func TestDiscussionsAdapter_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, offChainPath, r.URL.Path)
		assert.Equal(t, "discussions", r.URL.Query().Get("proposalType"))
		_, _ = w.Write([]byte(`{"count":2,"posts":[
			{"post_id":1,"title":"Hackathon recap","topic":{"name":"Community"},"username":"bob","created_at":"2025-02-01","updated_at":"2025-02-03"},
			{"post_id":2,"title":"Plain","created_at":"2025-02-02","last_edited_at":"2025-02-05","updated_at":"2025-02-04"}
		]}`))
	}))
	defer srv.Close()

	a := NewDiscussionsAdapter(NewGovernanceClient(srv.URL, "polkadot"), 100, NewCategorizer(config.DefaultCategories(), "Other"), logging.Discard())
	res := a.Fetch(context.Background())

	require.False(t, res.Failed)
	require.Len(t, res.Posts, 2)
	assert.Equal(t, 2, res.Count)

	assert.Equal(t, TypeDiscussion, res.Posts[0].Type)
	assert.Equal(t, "Community", res.Posts[0].SubType)
	assert.Equal(t, "bob", res.Posts[0].Submitter)
	assert.Equal(t, []string{"Events"}, res.Posts[0].Categories)
	assert.Equal(t, "2025-02-03", a.ChangeKey(res.Posts[0]))
	assert.Equal(t, "2025-02-05", a.ChangeKey(res.Posts[1]))
	assert.Equal(t, "", a.ChangeKey(models.Post{}))
}
