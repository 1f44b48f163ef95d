package store

import (
	"context"
	"fmt"
	"strings"
)

// Filter narrows ListImplementations. Zero fields match everything.
type Filter struct {
	Type     string
	Untyped  bool // only records without a type; overrides Type
	ImportID string
	Limit    int
}

// ReadImplementation retrieves a single entry by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadImplementation(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM implementations
		WHERE id = ?
	`, id)
	return scanEntry(row)
}

// ListImplementations returns matching entries ordered by seq ASC, id ASC.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListImplementations(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case f.Untyped:
		where = append(where, "type IS NULL")
	case f.Type != "":
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.ImportID != "" {
		where = append(where, "import_id = ?")
		args = append(args, f.ImportID)
	}

	query := `SELECT ` + entryColumns + ` FROM implementations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query implementations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate implementations: %w", err)
	}
	return entries, nil
}

// CountByType returns the number of stored records per type, with untyped
// records under "".
func (s *Store) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(type, ''), COUNT(*)
		FROM implementations
		GROUP BY COALESCE(type, '')
	`)
	if err != nil {
		return nil, fmt.Errorf("count implementations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}
