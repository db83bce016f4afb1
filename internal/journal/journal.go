// Package journal keeps the grower's free-form notes in a JSON file,
// newest entry first.
package journal

import (
	"encoding/json"
	"sync"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/utilities"
	"github.com/pkg/errors"
)

// Entry is one note as posted by the dashboard.
type Entry map[string]any

type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns every entry, newest first. A missing file is an empty journal.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add puts e at the head of the journal. A malformed file is reported and
// left as it is.
func (s *Store) Add(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries = append([]Entry{e}, entries...)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode journal")
	}
	return errors.Wrapf(utilities.WriteFileAtomic(s.path, data), "write %s", s.path)
}

func (s *Store) load() ([]Entry, error) {
	var entries []Entry
	err := utilities.DecodeFile(s.path, &entries)
	if errors.Is(err, cerrors.ErrMissingDocument) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
