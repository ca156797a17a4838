package capture

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starling/clipnote/internal/models"
)

const historySchemaSQL = `
CREATE TABLE IF NOT EXISTS captures (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	content        TEXT NOT NULL,
	urls           TEXT NOT NULL DEFAULT '[]',
	classification TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL DEFAULT 'clipboard',
	captured_at    TEXT NOT NULL
);
`

// History is the SQLite-backed capture log. Every classified clipboard
// capture is appended; rows beyond the configured limit are trimmed
// oldest-first.
type History struct {
	conn  *sql.DB
	limit int
}

// OpenHistory opens (or creates) the history database. limit <= 0
// disables trimming.
func OpenHistory(dsn string, limit int) (*History, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("capture: open history db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("capture: ping history db: %w", err)
	}
	if _, err := conn.Exec(historySchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("capture: apply history schema: %w", err)
	}
	return &History{conn: conn, limit: limit}, nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.conn.Close()
}

// Append inserts one capture and trims old rows past the limit.
func (h *History) Append(item models.CaptureItem) error {
	urlsJSON, _ := json.Marshal(item.URLs)

	tx, err := h.conn.Begin()
	if err != nil {
		return fmt.Errorf("capture: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO captures (content, urls, classification, source, captured_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.Content, string(urlsJSON), item.Classification, item.Source, item.CapturedAt)
	if err != nil {
		return fmt.Errorf("capture: insert: %w", err)
	}

	if h.limit > 0 {
		_, err = tx.Exec(`
			DELETE FROM captures WHERE id NOT IN (
				SELECT id FROM captures ORDER BY id DESC LIMIT ?
			)
		`, h.limit)
		if err != nil {
			return fmt.Errorf("capture: trim: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit captures, newest first.
func (h *History) Recent(limit int) ([]models.CaptureItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.conn.Query(`
		SELECT content, urls, classification, source, captured_at
		FROM captures ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("capture: recent: %w", err)
	}
	defer rows.Close()

	out := []models.CaptureItem{}
	for rows.Next() {
		var item models.CaptureItem
		var urlsJSON string
		if err := rows.Scan(&item.Content, &urlsJSON, &item.Classification, &item.Source, &item.CapturedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(urlsJSON), &item.URLs); err != nil {
			item.URLs = []string{}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Clear removes all captured items.
func (h *History) Clear() error {
	if _, err := h.conn.Exec(`DELETE FROM captures`); err != nil {
		return fmt.Errorf("capture: clear: %w", err)
	}
	return nil
}

// Count returns the number of stored captures.
func (h *History) Count() (int, error) {
	var n int
	if err := h.conn.QueryRow(`SELECT COUNT(*) FROM captures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("capture: count: %w", err)
	}
	return n, nil
}
