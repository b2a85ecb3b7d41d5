package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded goose migrations for driver.  A goose
// Provider is used instead of the package-level API so that concurrent
// callers (tests) do not share dialect state.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var dialect goose.Dialect
	switch driver {
	case "sqlite":
		dialect = goose.DialectSQLite3
	case "mysql":
		dialect = goose.DialectMySQL
	default:
		return fmt.Errorf("no migrations for driver %q", driver)
	}
	sub, err := fs.Sub(migrationsFS, "migrations/"+driver)
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}
