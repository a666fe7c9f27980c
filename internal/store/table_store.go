package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/vbonduro/floorplan/internal/domain"
)

// codePrefix starts every code the local directory issues ("T1", "T2", ...).
const codePrefix = "T"

// TableStore is the sqlite-backed Table Directory. Codes it hands out stay
// stable across replace-all calls for the same layout item or table name.
type TableStore struct {
	db *sql.DB
}

func NewTableStore(db *sql.DB) *TableStore {
	return &TableStore{db: db}
}

// ListTables returns the directory's tables for an area in publish order.
func (s *TableStore) ListTables(ctx context.Context, areaID int64) ([]domain.TableRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, seats, status FROM dining_tables
		WHERE area_id = ? ORDER BY position ASC, id ASC
	`, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := []domain.TableRecord{}
	for rows.Next() {
		var rec domain.TableRecord
		if err := rows.Scan(&rec.Code, &rec.Seats, &rec.Status); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

type existingTable struct {
	clientID string
	code     string
	name     string
	status   string
}

// ReplaceTables swaps the area's whole table list for assignments in one
// transaction. A table keeps its previous code when its client id, or failing
// that its name, matches a row being replaced; every other table gets a fresh
// code. The result maps each client id to its confirmed code.
func (s *TableStore) ReplaceTables(ctx context.Context, areaID int64, assignments []domain.TableAssignment) ([]domain.ConfirmedCode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := loadExisting(ctx, tx, areaID)
	if err != nil {
		return nil, err
	}

	byClient := make(map[string]existingTable, len(existing))
	byName := make(map[string]existingTable, len(existing))
	next := 1
	for _, e := range existing {
		if e.clientID != "" {
			byClient[e.clientID] = e
		}
		if key := normalizeName(e.name); key != "" {
			if _, ok := byName[key]; !ok {
				byName[key] = e
			}
		}
		if n, ok := codeNumber(e.code); ok && n >= next {
			next = n + 1
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM dining_tables WHERE area_id = ?`, areaID); err != nil {
		return nil, fmt.Errorf("failed to clear tables: %w", err)
	}

	used := make(map[string]bool, len(assignments))
	confirmed := make([]domain.ConfirmedCode, 0, len(assignments))
	for i, a := range assignments {
		code, status := "", domain.TableStatusAvailable
		for _, prev := range []existingTable{byClient[a.ClientID], byName[normalizeName(a.Name)]} {
			if prev.code != "" && !used[prev.code] {
				code, status = prev.code, prev.status
				break
			}
		}
		if code == "" {
			for used[codePrefix+strconv.Itoa(next)] {
				next++
			}
			code = codePrefix + strconv.Itoa(next)
			next++
		}
		used[code] = true

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dining_tables (area_id, client_id, code, name, seats, status, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, areaID, a.ClientID, code, strings.TrimSpace(a.Name), a.Seats, status, i); err != nil {
			return nil, fmt.Errorf("failed to insert table %q: %w", a.Name, err)
		}
		confirmed = append(confirmed, domain.ConfirmedCode{ClientID: a.ClientID, Code: code})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tables: %w", err)
	}
	return confirmed, nil
}

func loadExisting(ctx context.Context, tx *sql.Tx, areaID int64) ([]existingTable, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT COALESCE(client_id, ''), code, name, status FROM dining_tables
		WHERE area_id = ? ORDER BY position ASC, id ASC
	`, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}
	defer rows.Close()

	var out []existingTable
	for rows.Next() {
		var e existingTable
		if err := rows.Scan(&e.clientID, &e.code, &e.name, &e.status); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return out, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// codeNumber extracts n from a code of the form "T<n>".
func codeNumber(code string) (int, bool) {
	rest, ok := strings.CutPrefix(code, codePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
