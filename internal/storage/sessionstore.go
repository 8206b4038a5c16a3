// Package storage persists onboarding sessions under a base directory. Each
// session gets its own directory holding a self-contained JSON snapshot and
// an append-only JSONL transcript log; a YAML index summarizes all sessions.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// ErrNotFound marks a session id with no durable record. Callers treat it as
// "start fresh", never as a failure.
var ErrNotFound = errors.New("session not found")

// StorageError wraps a persistence failure. The conversation may continue in
// memory; the caller retries at the next mutation point.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageErr reports whether err is a persistence failure.
func IsStorageErr(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// SessionStore is durable persistence for onboarding sessions, safe for
// concurrent access across distinct session ids.
type SessionStore interface {
	Save(id string, rec models.SessionRecord) error
	Load(id string) (*models.SessionRecord, error)
	AppendTranscript(id string, entry models.TranscriptEntry) error
	List() ([]models.SessionIndexEntry, error)
	IsNotFound(err error) bool
}

type fileSessionStore struct {
	basePath string

	// indexMu guards index.yaml; keyMu guards the per-session key mutexes.
	indexMu sync.Mutex
	keyMu   sync.Mutex
	keys    map[string]*sync.Mutex
}

// NewSessionStore creates a SessionStore rooted at basePath. Records live
// under basePath/sessions/.
func NewSessionStore(basePath string) SessionStore {
	return &fileSessionStore{
		basePath: basePath,
		keys:     make(map[string]*sync.Mutex),
	}
}

func (s *fileSessionStore) sessionsDir() string {
	return filepath.Join(s.basePath, "sessions")
}

func (s *fileSessionStore) sessionDir(id string) string {
	return filepath.Join(s.sessionsDir(), id)
}

func (s *fileSessionStore) recordPath(id string) string {
	return filepath.Join(s.sessionDir(id), "session.json")
}

func (s *fileSessionStore) transcriptPath(id string) string {
	return filepath.Join(s.sessionDir(id), "transcript.jsonl")
}

func (s *fileSessionStore) indexPath() string {
	return filepath.Join(s.sessionsDir(), "index.yaml")
}

// lock returns the mutex serializing access to one session's files. The
// driver never overlaps calls per session, but the store guards anyway.
func (s *fileSessionStore) lock(id string) *sync.Mutex {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	mu, ok := s.keys[id]
	if !ok {
		mu = &sync.Mutex{}
		s.keys[id] = mu
	}
	return mu
}

// Save writes the full snapshot for a session, overwriting any previous
// record. Last write wins; repeated saves of the same snapshot are
// byte-identical.
func (s *fileSessionStore) Save(id string, rec models.SessionRecord) error {
	if id == "" {
		return &StorageError{Op: "saving session", Err: errors.New("id must not be empty")}
	}
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if rec.Fields == nil {
		rec.Fields = make(map[models.FieldKind]string)
	}
	if rec.Transcript == nil {
		rec.Transcript = []models.TranscriptEntry{}
	}

	if err := os.MkdirAll(s.sessionDir(id), 0o755); err != nil {
		return &StorageError{Op: "saving session: creating directory", Err: err}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return &StorageError{Op: "saving session: encoding record", Err: err}
	}
	data = append(data, '\n')
	if err := os.WriteFile(s.recordPath(id), data, 0o600); err != nil {
		return &StorageError{Op: "saving session: writing record", Err: err}
	}

	if err := s.updateIndex(rec); err != nil {
		return err
	}
	return nil
}

// Load reads a session record. ErrNotFound when no record exists. When the
// transcript log holds more entries than the snapshot (a crash between
// appends and the next snapshot write), the longer log wins.
func (s *fileSessionStore) Load(id string) (*models.SessionRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("loading session: %w", ErrNotFound)
	}
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("loading session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var rec models.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("loading session %s: parsing record: %w", id, err)
	}

	logged, err := s.readTranscriptLog(id)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	if len(logged) > len(rec.Transcript) {
		rec.Transcript = logged
	}

	return &rec, nil
}

// AppendTranscript durably appends one entry to the session's JSONL log. The
// log survives independently of snapshot writes, so a mid-conversation crash
// loses no exchanges.
func (s *fileSessionStore) AppendTranscript(id string, entry models.TranscriptEntry) error {
	if id == "" {
		return &StorageError{Op: "appending transcript", Err: errors.New("id must not be empty")}
	}
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(s.sessionDir(id), 0o755); err != nil {
		return &StorageError{Op: "appending transcript: creating directory", Err: err}
	}

	f, err := os.OpenFile(s.transcriptPath(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return &StorageError{Op: "appending transcript: opening log", Err: err}
	}
	defer func() { _ = f.Close() }()

	data, err := json.Marshal(entry)
	if err != nil {
		return &StorageError{Op: "appending transcript: encoding entry", Err: err}
	}
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return &StorageError{Op: "appending transcript: writing entry", Err: err}
	}
	return nil
}

// List returns the session index, newest first. A missing index means no
// sessions.
func (s *fileSessionStore) List() ([]models.SessionIndexEntry, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]models.SessionIndexEntry, len(index.Sessions))
	copy(entries, index.Sessions)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

// IsNotFound reports whether err marks a missing session.
func (s *fileSessionStore) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// readTranscriptLog scans the JSONL log, skipping malformed lines, and
// returns entries ordered by sequence index.
func (s *fileSessionStore) readTranscriptLog(id string) ([]models.TranscriptEntry, error) {
	f, err := os.Open(s.transcriptPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening transcript log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []models.TranscriptEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry models.TranscriptEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning transcript log: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	return entries, nil
}

// updateIndex upserts one session's row in index.yaml. Callers hold the
// session's key lock.
func (s *fileSessionStore) updateIndex(rec models.SessionRecord) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return &StorageError{Op: "updating session index", Err: err}
	}

	entry := models.SessionIndexEntry{
		ID:        rec.SessionID,
		UpdatedAt: time.Now().UTC(),
		Fields:    len(rec.Fields),
		Turns:     len(rec.Transcript),
		Completed: rec.Completed,
	}

	replaced := false
	for i := range index.Sessions {
		if index.Sessions[i].ID == rec.SessionID {
			index.Sessions[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		index.Sessions = append(index.Sessions, entry)
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return &StorageError{Op: "updating session index: encoding", Err: err}
	}
	if err := os.WriteFile(s.indexPath(), data, 0o600); err != nil {
		return &StorageError{Op: "updating session index: writing", Err: err}
	}
	return nil
}

// readIndex loads index.yaml; a missing file is an empty index. Callers hold
// indexMu.
func (s *fileSessionStore) readIndex() (*models.SessionIndex, error) {
	index := &models.SessionIndex{Version: "1.0"}
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, index); err != nil {
		return nil, fmt.Errorf("parsing session index: %w", err)
	}
	if index.Version == "" {
		index.Version = "1.0"
	}
	return index, nil
}
