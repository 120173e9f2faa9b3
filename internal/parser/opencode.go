package parser

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
)

// OpenCodeAdapter reads the session table of opencode.db. The
// storage/session tree is an older JSON mirror that is only
// touched on delete.
type OpenCodeAdapter struct {
	Dir string
}

func (a *OpenCodeAdapter) Agent() AgentType { return AgentOpenCode }

func (a *OpenCodeAdapter) dbPath() string {
	return filepath.Join(a.Dir, "opencode.db")
}

const (
	openCodeQuery = `SELECT id, title, directory, time_updated
		FROM session`
	openCodeNotArchived = ` WHERE time_archived IS NULL`
)

// Scan returns one session per unarchived row. Databases created
// before archiving existed have no time_archived column; all of
// their rows are returned.
func (a *OpenCodeAdapter) Scan(
	ctx context.Context, opts Options,
) ([]Session, error) {
	opts = opts.withDefaults()
	db, err := openSQLite(ctx, a.dbPath(), true)
	if err != nil || db == nil {
		return nil, err
	}
	defer db.Close()

	query := openCodeQuery
	archived, err := hasColumn(ctx, db, "session", "time_archived")
	if err != nil {
		return nil, fmt.Errorf("inspecting opencode schema: %w", err)
	}
	if archived {
		query += openCodeNotArchived
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying opencode sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			id      string
			title   sql.NullString
			dir     sql.NullString
			updated sql.NullInt64
		)
		if err := rows.Scan(&id, &title, &dir, &updated); err != nil {
			slog.Debug("skipping opencode row", "err", err)
			continue
		}
		if id == "" {
			continue
		}
		s := Session{
			Agent:       AgentOpenCode,
			ID:          id,
			ProjectName: projectName(dir.String),
			ProjectPath: dir.String,
			Timestamp:   nonNegative(updated.Int64),
		}
		if t := summaryText(title.String, opts.SummaryLen); t != "" {
			s.Summaries = []string{t}
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading opencode sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes the session row; message and part rows go with
// it through the schema's cascades. The JSON mirror is cleaned up
// best-effort.
func (a *OpenCodeAdapter) Delete(ctx context.Context, s Session) error {
	if err := checkSessionID(AgentOpenCode, s.ID); err != nil {
		return err
	}
	// The row is the session; the mirror file is a secondary copy
	// and is cleaned up even when the row delete fails.
	rowErr := a.deleteRow(ctx, s.ID)

	mirror := filepath.Join(a.Dir, "storage", "session")
	for _, dir := range subdirs(mirror) {
		path := filepath.Join(dir, s.ID+".json")
		if err := removeFile(path); err != nil {
			slog.Warn("opencode mirror cleanup failed", "path", path, "err", err)
		}
	}
	return rowErr
}

func (a *OpenCodeAdapter) deleteRow(ctx context.Context, id string) error {
	db, err := openSQLite(ctx, a.dbPath(), false)
	if err != nil || db == nil {
		return err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx,
		"DELETE FROM session WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("deleting opencode session %s: %w", id, err)
	}
	return nil
}
