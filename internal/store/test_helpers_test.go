package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/stepnorm/internal/stepimpl"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestImplementation normalizes doc or fails the test.
func createTestImplementation(t *testing.T, doc string) stepimpl.StepImplementation {
	t.Helper()
	impl, err := stepimpl.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	return impl
}

// createTestEntry builds an entry for doc under a fixed import.
func createTestEntry(t *testing.T, name, doc string) Entry {
	t.Helper()
	e, err := NewEntry(createTestImplementation(t, doc), name, "test.json", "import-1")
	if err != nil {
		t.Fatalf("NewEntry() failed: %v", err)
	}
	return e
}
