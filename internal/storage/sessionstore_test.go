package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

func testRecord(id string) models.SessionRecord {
	ts := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	return models.SessionRecord{
		SessionID: id,
		Fields: map[models.FieldKind]string{
			models.FieldName:  "Alice",
			models.FieldEmail: "alice@example.com",
		},
		Transcript: []models.TranscriptEntry{
			{Seq: 0, Speaker: models.SpeakerUser, Text: "Alice", Timestamp: ts},
			{Seq: 1, Speaker: models.SpeakerAgent, Text: "Got it, your name is Alice.", Timestamp: ts.Add(time.Second)},
		},
	}
}

func TestSessionStoreSaveAndLoad(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	rec := testRecord("sess-1")
	if err := store.Save("sess-1", rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load("sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("session id = %q", got.SessionID)
	}
	if got.Fields[models.FieldName] != "Alice" {
		t.Errorf("fields = %v", got.Fields)
	}
	if len(got.Transcript) != 2 {
		t.Fatalf("transcript has %d entries, want 2", len(got.Transcript))
	}
	if got.Transcript[1].Speaker != models.SpeakerAgent {
		t.Errorf("entry 1 speaker = %s", got.Transcript[1].Speaker)
	}
	if got.Completed {
		t.Error("two fields must not load as completed")
	}
}

func TestSessionStoreLoadMissing(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	_, err := store.Load("never-seen")
	if err == nil {
		t.Fatal("expected an error for a missing session")
	}
	if !store.IsNotFound(err) {
		t.Errorf("missing session classified as %v, want not-found", err)
	}
	if IsStorageErr(err) {
		t.Error("missing session must not be a storage error")
	}
}

func TestSessionStoreSaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir)
	rec := testRecord("sess-1")

	if err := store.Save("sess-1", rec); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "sessions", "sess-1", "session.json"))
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save("sess-1", rec); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "sessions", "sess-1", "session.json"))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("repeated saves of the same snapshot produced different records")
	}
}

func TestSessionStoreLastWriteWins(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	rec := testRecord("sess-1")
	if err := store.Save("sess-1", rec); err != nil {
		t.Fatal(err)
	}

	rec.Fields[models.FieldPhone] = "+14155552671"
	rec.Fields[models.FieldCountry] = "Canada"
	rec.Completed = true
	if err := store.Save("sess-1", rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Fields) != 4 || !got.Completed {
		t.Errorf("latest snapshot not reflected: %+v", got)
	}
}

func TestSessionStoreAppendTranscriptSurvivesMissedSnapshot(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	rec := testRecord("sess-1")
	if err := store.Save("sess-1", rec); err != nil {
		t.Fatal(err)
	}

	// Two more exchanges hit the append log, then the process dies before
	// the next snapshot write.
	extra := []models.TranscriptEntry{
		{Seq: 2, Speaker: models.SpeakerUser, Text: "alice@example.com", Timestamp: time.Now().UTC()},
		{Seq: 3, Speaker: models.SpeakerAgent, Text: "Got it.", Timestamp: time.Now().UTC()},
	}
	for _, e := range rec.Transcript {
		if err := store.AppendTranscript("sess-1", e); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range extra {
		if err := store.AppendTranscript("sess-1", e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Load("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Transcript) != 4 {
		t.Fatalf("recovered transcript has %d entries, want 4", len(got.Transcript))
	}
	for i, e := range got.Transcript {
		if e.Seq != i {
			t.Errorf("entry %d has seq %d", i, e.Seq)
		}
	}
	if got.Transcript[3].Text != "Got it." {
		t.Errorf("entry 3 = %+v", got.Transcript[3])
	}
}

func TestSessionStoreSnapshotAheadOfLogWins(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	rec := testRecord("sess-1")
	if err := store.AppendTranscript("sess-1", rec.Transcript[0]); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("sess-1", rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Transcript) != 2 {
		t.Errorf("transcript has %d entries, want the snapshot's 2", len(got.Transcript))
	}
}

func TestSessionStoreList(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	if err := store.Save("sess-1", testRecord("sess-1")); err != nil {
		t.Fatal(err)
	}
	done := testRecord("sess-2")
	done.Completed = true
	if err := store.Save("sess-2", done); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("list has %d entries, want 2", len(entries))
	}

	byID := make(map[string]models.SessionIndexEntry)
	for _, e := range entries {
		byID[e.ID] = e
	}
	if e := byID["sess-1"]; e.Fields != 2 || e.Turns != 2 || e.Completed {
		t.Errorf("sess-1 index entry = %+v", e)
	}
	if e := byID["sess-2"]; !e.Completed {
		t.Errorf("sess-2 index entry = %+v", e)
	}
}

func TestSessionStoreListEmpty(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	entries, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("fresh store listed %d sessions", len(entries))
	}
}

func TestSessionStoreDistinctSessionsIsolated(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	a := testRecord("sess-a")
	b := models.SessionRecord{SessionID: "sess-b", Fields: map[models.FieldKind]string{models.FieldName: "Bob"}}

	if err := store.Save("sess-a", a); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("sess-b", b); err != nil {
		t.Fatal(err)
	}

	gotA, _ := store.Load("sess-a")
	gotB, _ := store.Load("sess-b")
	if gotA.Fields[models.FieldName] != "Alice" || gotB.Fields[models.FieldName] != "Bob" {
		t.Errorf("cross-session interference: a=%v b=%v", gotA.Fields, gotB.Fields)
	}
}

func TestSessionStoreSaveEmptyID(t *testing.T) {
	store := NewSessionStore(t.TempDir())

	err := store.Save("", models.SessionRecord{})
	if err == nil {
		t.Fatal("expected error for empty id")
	}
	if !IsStorageErr(err) {
		t.Errorf("error %v is not a storage error", err)
	}
}

func TestSessionStoreMalformedLogLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	store := NewSessionStore(dir)

	rec := testRecord("sess-1")
	if err := store.Save("sess-1", rec); err != nil {
		t.Fatal(err)
	}

	logPath := filepath.Join(dir, "sessions", "sess-1", "transcript.jsonl")
	garbage := `{"seq":0,"speaker":"user","text":"Alice","ts":"2025-03-10T09:30:00Z"}
not json at all
{"seq":1,"speaker":"agent","text":"ok","ts":"2025-03-10T09:30:01Z"}
`
	if err := os.WriteFile(logPath, []byte(garbage), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load("sess-1")
	if err != nil {
		t.Fatalf("load with malformed log line: %v", err)
	}
	if len(got.Transcript) != 2 {
		t.Errorf("transcript has %d entries, want 2", len(got.Transcript))
	}
}
