package records

import (
	"time"

	"github.com/dmitrijs2005/govsync/internal/dbx"
)

// NewSQLiteRepository returns a Repository for SQLite (modernc driver).
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, d: sqlite, now: time.Now}
}
