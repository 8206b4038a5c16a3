package models

import (
	"fmt"
	"time"
)

// Speaker identifies which side of the conversation produced an utterance.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// ParseSpeaker maps a raw speaker name to a Speaker.
func ParseSpeaker(s string) (Speaker, error) {
	switch Speaker(s) {
	case SpeakerUser, SpeakerAgent:
		return Speaker(s), nil
	}
	return "", fmt.Errorf("unrecognized speaker %q: must be user or agent", s)
}

// TranscriptEntry is one immutable record in a session's conversation log.
// Sequence indices are assigned per session, strictly increasing from 0; a
// crash-recovered transcript may carry gaps where appends were lost.
type TranscriptEntry struct {
	Seq       int       `json:"seq"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}

// SessionRecord is the durable, self-contained snapshot of one onboarding
// session. Field keys appear only once accepted; absence means not yet
// collected.
type SessionRecord struct {
	SessionID  string               `json:"session_id"`
	Fields     map[FieldKind]string `json:"fields"`
	Transcript []TranscriptEntry    `json:"transcript"`
	Completed  bool                 `json:"completed"`
}

// SessionIndexEntry is one row in the store's session index.
type SessionIndexEntry struct {
	ID        string    `yaml:"id"`
	UpdatedAt time.Time `yaml:"updated_at"`
	Fields    int       `yaml:"fields"`
	Turns     int       `yaml:"turns"`
	Completed bool      `yaml:"completed"`
}

// SessionIndex is the master index of all persisted sessions.
type SessionIndex struct {
	Version  string              `yaml:"version"`
	Sessions []SessionIndexEntry `yaml:"sessions"`
}
