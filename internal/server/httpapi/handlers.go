package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/govsync/internal/common"
	"github.com/dmitrijs2005/govsync/internal/server/models"
	"github.com/dmitrijs2005/govsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/govsync/internal/server/scheduler"
)

var sourceGroups = map[string]models.Group{
	"onChain":  models.GroupOnChain,
	"offChain": models.GroupOffChain,
}

type findResponse struct {
	Collection     string        `json:"collection"`
	StorageUpdated bool          `json:"storageUpdated"`
	ModifiedIDs    []string      `json:"modifiedPostsIds"`
	Count          int           `json:"count"`
	Posts          []models.Post `json:"posts"`
}

type recordResponse struct {
	PostID          string   `json:"postId"`
	CreationDate    string   `json:"creationDate"`
	Collection      string   `json:"collection"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	SubType         string   `json:"subType"`
	Categories      []string `json:"categories"`
	RequestedAmount string   `json:"requestedAmount"`
	Reward          string   `json:"reward"`
	Submitter       string   `json:"submitter"`
	VectorFileID    string   `json:"vectorFileId"`
	DocsLinks       []string `json:"docsLinks"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tasks": s.tasks.Stats()})
}

// find serves GET /api/{onChain|offChain}/find{Collection}, e.g.
// /api/onChain/findSmallSpender refreshes OnChainPosts/small-spender.
func (s *Server) find(c *gin.Context) {
	group, ok := sourceGroups[c.Param("source")]
	name, isFind := collectionFromOp(c.Param("op"))
	if !ok || !isFind {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown endpoint"})
		return
	}

	a, ok := s.sync.Adapters().Find(group, name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%v: %s/%s", common.ErrUnknownCollection, group, name)})
		return
	}

	r, err := s.sync.Refresh(c.Request.Context(), a)
	if err != nil {
		s.logger.Error(c.Request.Context(), "refresh failed", "collection", a.Collection().String(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed", "storageUpdated": false})
		return
	}
	if r.Skipped {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream fetch failed", "storageUpdated": false})
		return
	}

	c.JSON(http.StatusOK, findResponse{
		Collection:     r.Collection.String(),
		StorageUpdated: r.StorageUpdated,
		ModifiedIDs:    nonNil(r.ModifiedIDs),
		Count:          len(r.Posts),
		Posts:          r.Posts,
	})
}

// addData runs the scheduled mirror task now. A run already in flight,
// ticked or triggered, is reported as a conflict.
func (s *Server) addData(c *gin.Context) {
	err := s.tasks.RunNow(c.Request.Context(), MirrorTask)
	switch {
	case errors.Is(err, scheduler.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "mirror already running"})
	case err != nil:
		s.logger.Error(c.Request.Context(), "mirror finished with errors", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mirror incomplete"})
	default:
		c.JSON(http.StatusOK, gin.H{"task": MirrorTask, "status": "completed"})
	}
}

func (s *Server) getPostsData(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recs, err := s.records.Query(c.Request.Context(), f)
	if errors.Is(err, common.ErrInvalidFilter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error(c.Request.Context(), "query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	items := make([]recordResponse, 0, len(recs))
	for _, r := range recs {
		items = append(items, recordResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

func parseFilter(c *gin.Context) (records.Filter, error) {
	f := records.Filter{
		Type:      c.Query("type"),
		SubType:   c.Query("subType"),
		Category:  c.Query("category"),
		Submitter: c.Query("submitter"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}
	if d := c.Query("date"); d != "" && f.EndDate == "" {
		f.EndDate = d
	}

	var err error
	if f.DateDifference, err = queryInt(c, "dateDifference"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(c, "limit"); err != nil {
		return f, err
	}
	f.RequestedAmount = queryAmount(c, "requestedAmount")
	f.Reward = queryAmount(c, "reward")
	return f, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrInvalidFilter, key)
	}
	return n, nil
}

func queryAmount(c *gin.Context, key string) *records.AmountFilter {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	return &records.AmountFilter{Op: records.Op(c.Query(key + "Op")), Value: v}
}

// collectionFromOp maps "findSmallSpender" to "small-spender".
func collectionFromOp(op string) (string, bool) {
	rest, ok := strings.CutPrefix(op, "find")
	if !ok || rest == "" {
		return "", false
	}

	var b strings.Builder
	for i, r := range rest {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
