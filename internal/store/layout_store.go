package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/layout"
)

// LayoutStore is the sqlite-backed Layout Persistence: one JSON document per
// area and status.
type LayoutStore struct {
	db *sql.DB
}

func NewLayoutStore(db *sql.DB) *LayoutStore {
	return &LayoutStore{db: db}
}

// GetLayout returns the draft and published documents of an area. Either may
// be nil.
func (s *LayoutStore) GetLayout(ctx context.Context, areaID int64) (layout.Versions, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, document FROM layouts WHERE area_id = ?
	`, areaID)
	if err != nil {
		return layout.Versions{}, fmt.Errorf("failed to get layout: %w", err)
	}
	defer rows.Close()

	var v layout.Versions
	for rows.Next() {
		var status, raw string
		if err := rows.Scan(&status, &raw); err != nil {
			return layout.Versions{}, fmt.Errorf("failed to scan layout: %w", err)
		}
		doc := &layout.Document{}
		if err := json.Unmarshal([]byte(raw), doc); err != nil {
			return layout.Versions{}, fmt.Errorf("failed to decode %s layout: %w", status, err)
		}
		switch domain.LayoutStatus(status) {
		case domain.LayoutDraft:
			v.Draft = doc
		case domain.LayoutPublished:
			v.Published = doc
		}
	}
	if err := rows.Err(); err != nil {
		return layout.Versions{}, fmt.Errorf("error iterating layouts: %w", err)
	}
	return v, nil
}

// PutLayout stores doc under status. Publishing supersedes any draft, which
// is removed in the same transaction.
func (s *LayoutStore) PutLayout(ctx context.Context, areaID int64, status domain.LayoutStatus, doc *layout.Document) error {
	if status != domain.LayoutDraft && status != domain.LayoutPublished {
		return fmt.Errorf("invalid layout status %q", status)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO layouts (area_id, status, document) VALUES (?, ?, ?)
		ON CONFLICT (area_id, status) DO UPDATE SET document = excluded.document, updated_at = datetime('now')
	`, areaID, string(status), string(raw)); err != nil {
		return fmt.Errorf("failed to store layout: %w", err)
	}

	if status == domain.LayoutPublished {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM layouts WHERE area_id = ? AND status = ?
		`, areaID, string(domain.LayoutDraft)); err != nil {
			return fmt.Errorf("failed to clear draft: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit layout: %w", err)
	}
	return nil
}
