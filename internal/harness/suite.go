package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindScenarioFiles lists scenario files (.yaml or .yml) under dir in
// lexical order. A non-empty filter is a glob over the file name without
// its extension.
func FindScenarioFiles(dir string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", filter, err)
		}
	}

	var files []string
	walk := func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			// pattern already checked above
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	}
	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, err
	}
	return files, nil
}

// GoldenFilePath returns golden/<name>.golden next to the scenario file.
func GoldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGoldenFile writes the result snapshot as the scenario's golden file.
func UpdateGoldenFile(result *Result, scenarioFile string) error {
	data, err := Snapshot(result)
	if err != nil {
		return fmt.Errorf("snapshot result: %w", err)
	}
	path := GoldenFilePath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// CompareWithGolden reports whether the result matches the golden file.
// ok is false with a nil error when no golden file exists.
func CompareWithGolden(result *Result, scenarioFile string) (match bool, ok bool, err error) {
	want, err := os.ReadFile(GoldenFilePath(scenarioFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, false, nil
	case err != nil:
		return false, false, fmt.Errorf("read golden: %w", err)
	}

	got, err := Snapshot(result)
	if err != nil {
		return false, true, fmt.Errorf("snapshot result: %w", err)
	}
	return bytes.Equal(want, got), true, nil
}
