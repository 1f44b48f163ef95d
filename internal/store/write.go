package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/stepnorm/internal/stepimpl"
)

// WriteImplementation inserts an entry and returns its seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a record that is
// already stored returns the existing seq and inserted=false.
func (s *Store) WriteImplementation(ctx context.Context, e Entry) (seq int64, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write implementation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, inserted, err = writeEntry(ctx, tx, e)
	if err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write implementation: commit: %w", err)
	}
	return seq, inserted, nil
}

// NamedImplementation pairs a record with the component name it came from.
type NamedImplementation struct {
	Name           string
	Implementation stepimpl.StepImplementation
}

// ImportResult summarizes one ImportImplementations call.
type ImportResult struct {
	ImportID string
	Inserted int
	Skipped  int
	Entries  []Entry
}

// ImportImplementations writes items atomically under a fresh import ID.
// Records already present are skipped and keep their original import.
func (s *Store) ImportImplementations(ctx context.Context, source string, items []NamedImplementation) (ImportResult, error) {
	result := ImportResult{ImportID: uuid.NewString()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import implementations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, item := range items {
		e, err := NewEntry(item.Implementation, item.Name, source, result.ImportID)
		if err != nil {
			return ImportResult{}, fmt.Errorf("import implementations: %w", err)
		}
		seq, inserted, err := writeEntry(ctx, tx, e)
		if err != nil {
			return ImportResult{}, fmt.Errorf("import implementations: %w", err)
		}
		e.Seq = seq
		if inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
		result.Entries = append(result.Entries, e)
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("import implementations: commit: %w", err)
	}
	return result, nil
}

func writeEntry(ctx context.Context, tx *sql.Tx, e Entry) (int64, bool, error) {
	record, err := marshalRecord(e.Implementation)
	if err != nil {
		return 0, false, fmt.Errorf("write implementation: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM implementations`).Scan(&seq); err != nil {
		return 0, false, fmt.Errorf("write implementation: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO implementations
		(id, name, type, target, record, source, import_id, seq, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Name,
		typeColumn(e.Implementation),
		e.Implementation.Target,
		record,
		e.Source,
		e.ImportID,
		seq,
		e.IRVersion,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write implementation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write implementation: rows affected: %w", err)
	}
	if rows > 0 {
		return seq, true, nil
	}

	// Already stored; report the existing seq.
	if err := tx.QueryRowContext(ctx, `SELECT seq FROM implementations WHERE id = ?`, e.ID).Scan(&seq); err != nil {
		return 0, false, fmt.Errorf("write implementation: existing seq: %w", err)
	}
	return seq, false, nil
}
