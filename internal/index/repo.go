package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/anota/internal/apperr"
	"github.com/starford/anota/internal/markdown"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/vault"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID         string
	Path       string
	Title      string
	FolderID   string
	Tags       []string
	ModifiedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	FolderID string `json:"folderId"`
	Snippet  string `json:"snippet"`
}

// RowFromNote builds the cache row and searchable body for n.
func RowFromNote(n models.Note) (NoteRow, string) {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return NoteRow{
		ID:         n.ID,
		Path:       vault.NotePath(n.FolderID, n.ID),
		Title:      n.Title,
		FolderID:   n.FolderID,
		Tags:       tags,
		ModifiedAt: n.ModifiedAt,
	}, markdown.PlainText(n.Content)
}

// IndexNote upserts n.
func (db *DB) IndexNote(n models.Note) error {
	row, body := RowFromNote(n)
	return db.UpsertNote(row, body)
}

// UpsertNote inserts or replaces a note and its FTS entry within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(n.Tags)

	_, err = tx.Exec(`
		INSERT INTO notes (id, path, title, folder_id, tags, body, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path        = excluded.path,
			title       = excluded.title,
			folder_id   = excluded.folder_id,
			tags        = excluded.tags,
			body        = excluded.body,
			modified_at = excluded.modified_at
	`, n.ID, n.Path, n.Title, n.FolderID, string(tagsJSON), body, n.ModifiedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// No-op when the FTS5 tag is absent.
	if err := ftsUpsert(tx, n.ID, n.Title, body, n.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNote removes a note and its FTS entry.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// DeleteByPath removes the note cached for the vault-relative path, if
// any, and returns its id. A note that has since been written elsewhere
// is cached under its new path and is left alone.
func (db *DB) DeleteByPath(path string) (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM notes WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: lookup path: %w", err)
	}
	return id, db.DeleteNote(id)
}

// GetNote returns the cached row for id.
func (db *DB) GetNote(id string) (*NoteRow, error) {
	var (
		r    NoteRow
		tags string
	)
	err := db.conn.QueryRow(`SELECT id, path, title, folder_id, tags, modified_at FROM notes WHERE id = ?`, id).
		Scan(&r.ID, &r.Path, &r.Title, &r.FolderID, &tags, &r.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	_ = json.Unmarshal([]byte(tags), &r.Tags)
	return &r, nil
}

// AllIDs returns every cached note id.
func (db *DB) AllIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT id FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.FolderID, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
