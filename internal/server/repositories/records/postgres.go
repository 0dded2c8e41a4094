package records

import (
	"time"

	"github.com/dmitrijs2005/govsync/internal/dbx"
)

// NewPostgresRepository returns a Repository for PostgreSQL (pgx driver).
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, d: postgres, now: time.Now}
}
