package core

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

func TestPropertyTranscriptStrictlyIncreasing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewSession("prop-session")

		n := rapid.IntRange(0, 50).Draw(t, "entries")
		for i := 0; i < n; i++ {
			speaker := models.SpeakerUser
			if rapid.Bool().Draw(t, "agentTurn") {
				speaker = models.SpeakerAgent
			}
			text := rapid.StringN(0, 40, -1).Draw(t, "text")
			entry := s.AppendTranscript(speaker, text)
			if entry.Seq != i {
				t.Fatalf("entry %d assigned seq %d", i, entry.Seq)
			}
		}

		snap := s.Snapshot()
		if len(snap.Transcript) != n {
			t.Fatalf("snapshot has %d entries, want %d", len(snap.Transcript), n)
		}
		for i, e := range snap.Transcript {
			if e.Seq != i {
				t.Fatalf("snapshot entry %d has seq %d", i, e.Seq)
			}
		}
	})
}

func TestPropertyCompletionMonotonic(t *testing.T) {
	values := map[models.FieldKind]string{
		models.FieldName:    "Alice",
		models.FieldEmail:   "alice@example.com",
		models.FieldPhone:   "+14155552671",
		models.FieldCountry: "Canada",
	}

	rapid.Check(t, func(t *rapid.T) {
		s := NewSession("prop-session")
		kinds := models.AllFieldKinds()

		n := rapid.IntRange(0, 20).Draw(t, "ops")
		wasCompleted := false
		seen := make(map[models.FieldKind]bool)

		for i := 0; i < n; i++ {
			kind := rapid.SampledFrom(kinds).Draw(t, "kind")
			if rapid.Bool().Draw(t, "accept") {
				s.Record(models.Accepted(kind, values[kind]))
				seen[kind] = true
			} else {
				s.Record(models.Rejected(kind, "rejected"))
			}

			if wasCompleted && !s.Completed() {
				t.Fatal("completion regressed")
			}
			wasCompleted = s.Completed()

			if s.Completed() != (len(seen) == len(kinds)) {
				t.Fatalf("completed = %v with %d/%d fields accepted", s.Completed(), len(seen), len(kinds))
			}
		}
	})
}
