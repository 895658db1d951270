package wallets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// JSONStore keeps records in memory and rewrites the whole file on every
// change.
type JSONStore struct {
	path string

	mu      sync.Mutex
	records []Record
}

// OpenJSON loads path; a missing file is an empty store.
func OpenJSON(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

func (s *JSONStore) Records(context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records), nil
}

func (s *JSONStore) Save(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.records, func(x Record) bool { return x.Address == r.Address })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, r.Address)
	}
	s.records[i] = r
	return s.flush()
}

func (s *JSONStore) Replace(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.Clone(records)
	return s.flush()
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) flush() error {
	records := s.records
	if records == nil {
		records = []Record{}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
