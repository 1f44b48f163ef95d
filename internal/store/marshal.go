package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/stepnorm/internal/ir"
	"github.com/roach88/stepnorm/internal/stepimpl"
)

// Entry is one stored step implementation with its provenance.
type Entry struct {
	ID             string
	Name           string
	Source         string
	ImportID       string
	Seq            int64
	IRVersion      string
	Implementation stepimpl.StepImplementation
}

// NewEntry computes the content-addressed ID for impl.
// Seq is assigned by the store on write.
func NewEntry(impl stepimpl.StepImplementation, name, source, importID string) (Entry, error) {
	id, err := impl.ID()
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	return Entry{
		ID:             id,
		Name:           name,
		Source:         source,
		ImportID:       importID,
		IRVersion:      ir.IRVersion,
		Implementation: impl,
	}, nil
}

// marshalRecord converts the implementation to canonical JSON TEXT.
func marshalRecord(impl stepimpl.StepImplementation) (string, error) {
	data, err := impl.Canonical()
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(data), nil
}

// unmarshalRecord reads canonical JSON TEXT back, preserving key order.
func unmarshalRecord(data string) (stepimpl.StepImplementation, error) {
	impl, err := stepimpl.Decode([]byte(data))
	if err != nil {
		return stepimpl.StepImplementation{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return impl, nil
}

// typeColumn maps an absent type to SQL NULL.
func typeColumn(impl stepimpl.StepImplementation) sql.NullString {
	if impl.Type == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *impl.Type, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

const entryColumns = `id, name, source, import_id, seq, ir_version, record`

func scanEntry(row scanner) (Entry, error) {
	var (
		e      Entry
		record string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Source, &e.ImportID, &e.Seq, &e.IRVersion, &record); err != nil {
		return Entry{}, err
	}
	impl, err := unmarshalRecord(record)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.Implementation = impl
	return e, nil
}
