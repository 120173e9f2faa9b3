package parser

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// KiroAdapter reads kiro-cli's conversations_v2 table, where each
// row's key is the project directory and value is the whole
// conversation as JSON.
type KiroAdapter struct {
	Dir string
}

func (a *KiroAdapter) Agent() AgentType { return AgentKiro }

func (a *KiroAdapter) dbPath() string {
	return filepath.Join(a.Dir, "data.sqlite3")
}

func (a *KiroAdapter) Scan(
	ctx context.Context, opts Options,
) ([]Session, error) {
	opts = opts.withDefaults()
	db, err := openSQLite(ctx, a.dbPath(), true)
	if err != nil || db == nil {
		return nil, err
	}
	defer db.Close()

	ok, err := hasTable(ctx, db, "conversations_v2")
	if err != nil {
		return nil, fmt.Errorf("inspecting kiro schema: %w", err)
	}
	if !ok {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT key, conversation_id, value, updated_at
		FROM conversations_v2`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying kiro conversations: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			dir, id, value sql.NullString
			updated        sql.NullInt64
		)
		if err := rows.Scan(&dir, &id, &value, &updated); err != nil {
			slog.Debug("skipping kiro row", "err", err)
			continue
		}
		if id.String == "" {
			continue
		}
		s := Session{
			Agent:       AgentKiro,
			ID:          id.String,
			ProjectName: projectName(dir.String),
			ProjectPath: dir.String,
			Timestamp:   nonNegative(updated.Int64),
		}
		if t := summaryText(kiroFirstPrompt(value.String), opts.SummaryLen); t != "" {
			s.Summaries = []string{t}
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading kiro conversations: %w", err)
	}
	return sessions, nil
}

// kiroFirstPrompt returns the first user message of a
// conversation. Newer kiro-cli versions record turns under
// history[].user.content.Prompt.prompt instead of messages[].
func kiroFirstPrompt(value string) string {
	if !gjson.Valid(value) {
		return ""
	}
	var text string
	gjson.Get(value, "messages").ForEach(func(_, msg gjson.Result) bool {
		if msg.Get("role").Str != "user" {
			return true
		}
		text = messageText(msg.Get("content"))
		return collapseSpace(text) == ""
	})
	if collapseSpace(text) != "" {
		return text
	}
	gjson.Get(value, "history").ForEach(func(_, turn gjson.Result) bool {
		text = turn.Get("user.content.Prompt.prompt").Str
		return collapseSpace(text) == ""
	})
	return text
}

// Delete removes the conversation row.
func (a *KiroAdapter) Delete(ctx context.Context, s Session) error {
	if err := checkSessionID(AgentKiro, s.ID); err != nil {
		return err
	}
	db, err := openSQLite(ctx, a.dbPath(), false)
	if err != nil || db == nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx,
		"DELETE FROM conversations_v2 WHERE conversation_id = ?", s.ID,
	); err != nil {
		return fmt.Errorf("deleting kiro conversation %s: %w", s.ID, err)
	}
	return nil
}
