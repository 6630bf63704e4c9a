// Package store contains the file-backed record store for form submissions.
// Every merge reads the whole file, adds one entry and rewrites the file.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ASHISH26940/formrelay/internal/form"
	"github.com/ASHISH26940/formrelay/internal/persistence"
	"github.com/hashicorp/go-hclog"
)

// Records is a decoded view of the store: capture timestamp to submission.
type Records map[string]form.Submission

// Keys returns the timestamps in chronological (lexical) order.
func (r Records) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store is a JSON file mapping timestamp keys to submissions.
// It is safe for concurrent use within one process.
type Store struct {
	mu     sync.Mutex
	path   string
	logger hclog.Logger
}

// NewStore returns a Store backed by the file at path. The file is not
// touched until the first Merge.
func NewStore(path string, logger hclog.Logger) *Store {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Merge inserts fields under timestamp and rewrites the file. An absent,
// unreadable or corrupt file is replaced by a fresh mapping. An existing
// entry with the same timestamp is overwritten.
func (s *Store) Merge(timestamp string, fields form.Submission) error {
	entry, err := encode(fields)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	data[timestamp] = entry

	out, err := encode(data)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := persistence.WriteFile(s.path, out); err != nil {
		return fmt.Errorf("write store %s: %w", s.path, err)
	}
	return nil
}

// Records reads the current contents of the store. Entries that are not a
// mapping of strings are left out of the result but kept on disk.
func (s *Store) Records() Records {
	s.mu.Lock()
	raw := s.load()
	s.mu.Unlock()

	records := make(Records, len(raw))
	for ts, entry := range raw {
		var sub form.Submission
		if err := json.Unmarshal(entry, &sub); err != nil || sub == nil {
			s.logger.Debug("skipping entry with unexpected shape", "timestamp", ts)
			continue
		}
		records[ts] = sub
	}
	return records
}

// load returns the on-disk mapping, or an empty one when the file cannot be
// used. Entries are kept as raw JSON so values written by other tools
// survive the rewrite untouched.
func (s *Store) load() map[string]json.RawMessage {
	data, err := persistence.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("store unreadable, starting fresh", "path", s.path, "error", err)
		return make(map[string]json.RawMessage)
	}
	if data == nil {
		return make(map[string]json.RawMessage)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("store is not a JSON object, starting fresh", "path", s.path, "error", err)
		return make(map[string]json.RawMessage)
	}
	if m == nil {
		// The file held a bare null.
		return make(map[string]json.RawMessage)
	}
	return m
}

// encode writes v pretty-printed with two-space indentation, map keys
// sorted, and non-ASCII and HTML characters left as they are.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
