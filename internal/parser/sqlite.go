package parser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteDSN builds a URI-form DSN so that mode=ro reaches SQLite
// even when the path contains spaces or '?'. Writable handles
// enable foreign keys so deletes cascade as the schema declares.
func sqliteDSN(dbPath string, readOnly bool) string {
	u := url.URL{Scheme: "file", Path: dbPath}
	q := "_busy_timeout=3000"
	if readOnly {
		q = "mode=ro&" + q
	} else {
		q += "&_foreign_keys=1"
	}
	return u.String() + "?" + q
}

// openSQLite opens dbPath, returning (nil, nil) when the file does
// not exist so callers can treat an absent store as empty.
func openSQLite(
	ctx context.Context, dbPath string, readOnly bool,
) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	db, err := sql.Open("sqlite3", sqliteDSN(dbPath, readOnly))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	return db, nil
}

// hasColumn reports whether table has a column named col.
func hasColumn(
	ctx context.Context, db *sql.DB, table, col string,
) (bool, error) {
	rows, err := db.QueryContext(
		ctx, "SELECT name FROM pragma_table_info(?)", table,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == col {
			return true, nil
		}
	}
	return false, rows.Err()
}

// hasTable reports whether the schema defines table.
func hasTable(
	ctx context.Context, db *sql.DB, table string,
) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		table,
	).Scan(&n)
	return n > 0, err
}
