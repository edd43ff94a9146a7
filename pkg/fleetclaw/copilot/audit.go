// audit.go keeps a local SQLite trail of every executed state-changing
// tool call. The model never sees it; it exists so a human can reconstruct
// what the copilot actually did to their wallets.
package copilot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// AuditEntry is one recorded mutating execution.
type AuditEntry struct {
	ID        string
	CreatedAt time.Time
	Tool      string
	Input     string
	Status    string
}

// AuditLog is a SQLite-backed append-only log.
type AuditLog struct {
	db *sql.DB
}

// OpenAuditLog opens (and migrates) the audit database at path.
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS audit (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	tool       TEXT NOT NULL,
	input      TEXT NOT NULL,
	status     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_created ON audit(created_at);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &AuditLog{db: db}, nil
}

// Record appends one entry.
func (a *AuditLog) Record(tool string, input json.RawMessage, status string) error {
	_, err := a.db.Exec(
		`INSERT INTO audit (id, created_at, tool, input, status) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), time.Now().UTC(), tool, string(input), status,
	)
	if err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}
	return nil
}

// Recent returns the latest n entries, newest first.
func (a *AuditLog) Recent(n int) ([]AuditEntry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := a.db.Query(
		`SELECT id, created_at, tool, input, status FROM audit ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Tool, &e.Input, &e.Status); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (a *AuditLog) Close() error {
	return a.db.Close()
}
