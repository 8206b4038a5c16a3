package core

import (
	"time"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// Session is the in-memory state of one onboarding interaction: accepted
// fields, the conversation transcript, and completion status. It is owned by
// the Controller during an active conversation; the store holds durable
// snapshots, never a live reference.
type Session struct {
	id         string
	fields     map[models.FieldKind]string
	transcript []models.TranscriptEntry
	completed  bool
}

// NewSession creates an empty session with the given immutable identifier.
func NewSession(id string) *Session {
	return &Session{
		id:     id,
		fields: make(map[models.FieldKind]string),
	}
}

// RestoreSession rebuilds a session from a durable snapshot.
func RestoreSession(rec models.SessionRecord) *Session {
	s := NewSession(rec.SessionID)
	for kind, value := range rec.Fields {
		s.fields[kind] = value
	}
	s.transcript = append(s.transcript, rec.Transcript...)
	s.recomputeCompleted()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Record applies a validation outcome. Accepted values are inserted or
// overwritten and completion is recomputed; rejections leave fields untouched.
// Completion is monotonic: overwriting an accepted value never unsets it.
func (s *Session) Record(outcome models.ValidationOutcome) {
	if !outcome.Accepted {
		return
	}
	s.fields[outcome.Kind] = outcome.Value
	s.recomputeCompleted()
}

// AppendTranscript assigns the next sequence index and appends one entry,
// returning it for durable logging.
func (s *Session) AppendTranscript(speaker models.Speaker, text string) models.TranscriptEntry {
	entry := models.TranscriptEntry{
		Seq:       s.nextSeq(),
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	s.transcript = append(s.transcript, entry)
	return entry
}

// nextSeq continues from the last entry's index rather than the slice length:
// a transcript restored from a partially-written log may carry gaps, and
// sequence indices must keep strictly increasing across them.
func (s *Session) nextSeq() int {
	if n := len(s.transcript); n > 0 {
		return s.transcript[n-1].Seq + 1
	}
	return 0
}

// Field returns the accepted value for a kind, if any.
func (s *Session) Field(kind models.FieldKind) (string, bool) {
	v, ok := s.fields[kind]
	return v, ok
}

// Completed reports whether all four field kinds hold accepted values.
func (s *Session) Completed() bool { return s.completed }

// NextUnset returns the first field kind, in collection order, that has no
// accepted value yet.
func (s *Session) NextUnset() (models.FieldKind, bool) {
	for _, kind := range models.AllFieldKinds() {
		if _, ok := s.fields[kind]; !ok {
			return kind, true
		}
	}
	return "", false
}

// Missing returns the field kinds with no accepted value, in collection order.
func (s *Session) Missing() []models.FieldKind {
	var missing []models.FieldKind
	for _, kind := range models.AllFieldKinds() {
		if _, ok := s.fields[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	return missing
}

// TranscriptLen returns the number of transcript entries.
func (s *Session) TranscriptLen() int { return len(s.transcript) }

// Snapshot returns a self-contained deep copy of the current state for
// persistence. Mutating the returned record does not affect the session.
func (s *Session) Snapshot() models.SessionRecord {
	fields := make(map[models.FieldKind]string, len(s.fields))
	for kind, value := range s.fields {
		fields[kind] = value
	}
	transcript := make([]models.TranscriptEntry, len(s.transcript))
	copy(transcript, s.transcript)
	return models.SessionRecord{
		SessionID:  s.id,
		Fields:     fields,
		Transcript: transcript,
		Completed:  s.completed,
	}
}

func (s *Session) recomputeCompleted() {
	for _, kind := range models.AllFieldKinds() {
		if _, ok := s.fields[kind]; !ok {
			// Never regress: completed stays true once reached.
			return
		}
	}
	s.completed = true
}
