package records

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/govsync/internal/dbx"
	"github.com/dmitrijs2005/govsync/internal/server/models"
)

// dialect captures what differs between the supported databases.
type dialect struct {
	name        string
	placeholder func(n int) string
}

var (
	postgres = dialect{name: "postgres", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
	sqlite   = dialect{name: "sqlite", placeholder: func(int) string { return "?" }}
)

// likeEscaper makes LIKE wildcards in a user value match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SQLRepository implements Repository over database/sql.
type SQLRepository struct {
	db  dbx.DBTX
	d   dialect
	now func() time.Time
}

func (r *SQLRepository) Upsert(ctx context.Context, recs []models.IndexedRecord) error {
	query := r.upsertQuery()
	for _, rec := range recs {
		categories, err := json.Marshal(nonNil(rec.Categories))
		if err != nil {
			return fmt.Errorf("encode categories: %w", err)
		}
		links, err := json.Marshal(nonNil(rec.DocsLinks))
		if err != nil {
			return fmt.Errorf("encode docs links: %w", err)
		}

		var created any
		if day := createdOn(rec.CreationDate); day != "" {
			created = day
		}

		_, err = r.db.ExecContext(ctx, query,
			rec.PostID, rec.CreationDate, rec.Collection, rec.Title, rec.Type, rec.SubType,
			string(categories), rec.RequestedAmount, amountNum(rec.RequestedAmount),
			rec.Reward, amountNum(rec.Reward), rec.Submitter, rec.VectorFileID,
			string(links), created,
		)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) upsertQuery() string {
	ph := make([]string, 15)
	for i := range ph {
		ph[i] = r.d.placeholder(i + 1)
	}
	return `INSERT INTO indexed_records (post_id, creation_date, collection, title, type, sub_type,
		categories, requested_amount, requested_amount_num, reward, reward_num, submitter,
		vector_file_id, docs_links, created_on)
		VALUES (` + strings.Join(ph, ", ") + `)
		ON CONFLICT (post_id, creation_date) DO UPDATE SET
		collection = excluded.collection,
		title = excluded.title,
		type = excluded.type,
		sub_type = excluded.sub_type,
		categories = excluded.categories,
		requested_amount = excluded.requested_amount,
		requested_amount_num = excluded.requested_amount_num,
		reward = excluded.reward,
		reward_num = excluded.reward_num,
		submitter = excluded.submitter,
		vector_file_id = excluded.vector_file_id,
		docs_links = excluded.docs_links,
		created_on = excluded.created_on,
		updated_at = CURRENT_TIMESTAMP`
}

func (r *SQLRepository) Query(ctx context.Context, f Filter) ([]models.IndexedRecord, error) {
	rf, err := f.resolve(r.now())
	if err != nil {
		return nil, err
	}
	query, args := r.selectQuery(rf)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.IndexedRecord
	for rows.Next() {
		var (
			rec               models.IndexedRecord
			categories, links string
		)
		if err := rows.Scan(&rec.PostID, &rec.CreationDate, &rec.Collection, &rec.Title, &rec.Type,
			&rec.SubType, &categories, &rec.RequestedAmount, &rec.Reward, &rec.Submitter,
			&rec.VectorFileID, &links); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal([]byte(categories), &rec.Categories); err != nil {
			return nil, fmt.Errorf("decode categories of %s: %w", rec.PostID, err)
		}
		if err := json.Unmarshal([]byte(links), &rec.DocsLinks); err != nil {
			return nil, fmt.Errorf("decode docs links of %s: %w", rec.PostID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) selectQuery(f resolved) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, r.d.placeholder(len(args))))
	}

	if f.Type != "" {
		add("type = %s", f.Type)
	}
	if f.SubType != "" {
		add("sub_type = %s", f.SubType)
	}
	if f.Category != "" {
		add(`LOWER(categories) LIKE %s ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(f.Category))+"%")
	}
	if f.Submitter != "" {
		add("submitter = %s", f.Submitter)
	}
	if f.start != "" {
		add("created_on >= %s", f.start)
	}
	if f.end != "" {
		add("created_on <= %s", f.end)
	}
	if a := f.RequestedAmount; a != nil {
		add("requested_amount_num "+opSQL[a.Op]+" %s", a.Value)
	}
	if a := f.Reward; a != nil {
		add("reward_num "+opSQL[a.Op]+" %s", a.Value)
	}

	q := `SELECT post_id, creation_date, collection, title, type, sub_type, categories,
		requested_amount, reward, submitter, vector_file_id, docs_links
		FROM indexed_records`
	if len(where) > 0 {
		q += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	q += "\n\t\tORDER BY created_on DESC NULLS LAST, post_id\n\t\tLIMIT " + r.d.placeholder(len(args))
	return q, args
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
