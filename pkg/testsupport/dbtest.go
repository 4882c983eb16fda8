package testsupport

import (
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// NewSQLiteMemoryDB opens a shared-cache in-memory sqlite database. Each
// distinct name is a separate database for the lifetime of the process.
func NewSQLiteMemoryDB(name string) (*sql.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(strings.TrimSpace(name))
	if name == "" {
		name = "cmssync"
	}
	return sql.Open("sqlite3", "file:"+name+"?mode=memory&cache=shared")
}

// NewBunDB opens a named in-memory sqlite database through bun and closes it
// when t finishes.
func NewBunDB(t testing.TB, name string) *bun.DB {
	t.Helper()
	sqlDB, err := NewSQLiteMemoryDB(name)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
