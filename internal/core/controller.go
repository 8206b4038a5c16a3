package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// Store is the durable persistence the controller writes through on every
// mutation. Load reports a missing record through the store's not-found
// sentinel, distinguishable via NotFoundReporter.
type Store interface {
	Save(id string, rec models.SessionRecord) error
	Load(id string) (*models.SessionRecord, error)
	AppendTranscript(id string, entry models.TranscriptEntry) error
}

// NotFoundReporter is implemented by stores whose Load distinguishes a
// missing session from a read failure.
type NotFoundReporter interface {
	IsNotFound(err error) bool
}

// EventLogger receives operator-facing events. Implementations must be safe
// for concurrent use.
type EventLogger interface {
	LogEvent(level, eventType, sessionID string, data map[string]any)
}

// CompletionNotifier is told when a session finishes with all fields durably
// persisted.
type CompletionNotifier interface {
	SessionCompleted(rec models.SessionRecord) error
}

// retryLine is the generic user-facing line for persistence trouble; storage
// errors are never spoken verbatim.
const retryLine = "I had trouble saving that just now, so let me try again in a moment."

// Phase is the controller's view of where a session is in the protocol.
type Phase string

const (
	PhaseWelcoming   Phase = "welcoming"
	PhaseCollecting  Phase = "collecting"
	PhaseSummarizing Phase = "summarizing"
	PhaseDone        Phase = "done"
)

// SubmitResult is the outcome of one submit_field turn, shaped for the
// conversation driver to speak back.
type SubmitResult struct {
	Accepted  bool
	Value     string
	Reason    string
	Reply     string
	Next      models.FieldKind
	Completed bool
	Done      bool
	Persisted bool
}

// SummaryResult carries the deterministic summary and whether the session has
// reached its terminal state.
type SummaryResult struct {
	Text      string
	Completed bool
	Done      bool
}

// liveSession tracks one in-memory session plus its persistence bookkeeping.
// dirty means the latest in-memory state has not been durably written.
type liveSession struct {
	sess        *Session
	dirty       bool
	summaryDone bool
	notified    bool
}

// Controller orchestrates the field-by-field collection protocol: which field
// to ask next, how to react to validation outcomes, when a session is
// complete, and how the summary is derived. Every operation is safe to invoke
// in any order the conversation driver chooses.
type Controller struct {
	mu        sync.Mutex
	sessions  map[string]*liveSession
	store     Store
	validator *Validator
	events    EventLogger
	notifier  CompletionNotifier
}

// ControllerOpts bundles the controller's collaborators. Events and Notifier
// may be nil.
type ControllerOpts struct {
	Store     Store
	Validator *Validator
	Events    EventLogger
	Notifier  CompletionNotifier
}

// NewController creates a Controller with no live sessions.
func NewController(opts ControllerOpts) *Controller {
	v := opts.Validator
	if v == nil {
		v = NewValidator(models.ValidationConfig{NameMinLen: 1, CountryFuzzyDistance: 2})
	}
	return &Controller{
		sessions:  make(map[string]*liveSession),
		store:     opts.Store,
		validator: v,
		events:    opts.Events,
		notifier:  opts.Notifier,
	}
}

// Validator exposes the underlying field validator for direct,
// side-effect-free checks.
func (c *Controller) Validator() *Validator { return c.validator }

// StartSession creates a new session with a fresh identifier and persists its
// initial empty record.
func (c *Controller) StartSession() (string, error) {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	ls := &liveSession{sess: NewSession(id), dirty: true}
	c.sessions[id] = ls
	c.flush(ls)
	c.logEvent("INFO", "session.started", id, nil)
	if ls.dirty {
		return id, fmt.Errorf("starting session %s: initial record not persisted", id)
	}
	return id, nil
}

// LoadSession brings a session into memory from the store. A missing record
// is not an error: the session starts fresh under the given id.
func (c *Controller) LoadSession(id string) (models.SessionRecord, error) {
	if id == "" {
		return models.SessionRecord{}, errors.New("loading session: id must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return models.SessionRecord{}, err
	}
	return ls.sess.Snapshot(), nil
}

// ResetSession discards a session's collected state and persists the empty
// record. It exists for driver-initiated restarts; a completed session stays
// reachable by id until reset.
func (c *Controller) ResetSession(id string) error {
	if id == "" {
		return errors.New("resetting session: id must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ls := &liveSession{sess: NewSession(id), dirty: true}
	c.sessions[id] = ls
	c.flush(ls)
	if ls.dirty {
		return fmt.Errorf("resetting session %s: record not persisted", id)
	}
	return nil
}

// Phase reports the session's current protocol state.
func (c *Controller) Phase(id string) (Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return "", err
	}
	switch {
	case ls.summaryDone:
		return PhaseDone, nil
	case ls.sess.Completed():
		return PhaseSummarizing, nil
	case ls.sess.TranscriptLen() == 0:
		return PhaseWelcoming, nil
	}
	return PhaseCollecting, nil
}

// NextField returns the field the driver should ask for next.
func (c *Controller) NextField(id string) (models.FieldKind, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return "", false, err
	}
	kind, ok := ls.sess.NextUnset()
	return kind, ok, nil
}

// SubmitField runs one collection turn: validate the raw utterance for the
// given kind, record it on acceptance, log both sides of the exchange to the
// transcript, and write the session through to the store. Rejection keeps the
// session on the same field; a storage failure keeps the value in memory and
// surfaces only a generic retry line to the user. Submissions after the
// summary has been delivered are no-ops returning the existing summary.
func (c *Controller) SubmitField(id string, kind models.FieldKind, raw string) (SubmitResult, error) {
	if id == "" {
		return SubmitResult{}, errors.New("submitting field: session id must not be empty")
	}
	if _, err := models.ParseFieldKind(string(kind)); err != nil {
		c.logEvent("ERROR", "field.unrecognized", id, map[string]any{"field": string(kind)})
		return SubmitResult{}, fmt.Errorf("submitting field: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return SubmitResult{}, err
	}

	if ls.summaryDone {
		// Terminal: never re-validate or re-collect. Until the summary is
		// delivered, corrections to already-collected fields still store.
		return SubmitResult{
			Accepted:  true,
			Reply:     c.summaryText(ls.sess),
			Completed: true,
			Done:      true,
			Persisted: !ls.dirty,
		}, nil
	}

	outcome := c.validator.Validate(kind, raw)

	userEntry := ls.sess.AppendTranscript(models.SpeakerUser, raw)
	c.appendDurable(ls, userEntry)

	var reply string
	if outcome.Accepted {
		ls.sess.Record(outcome)
		ls.dirty = true
		c.logEvent("INFO", "field.accepted", id, map[string]any{"field": string(kind)})
		reply = acceptedReply(outcome, ls.sess)
	} else {
		c.logEvent("INFO", "field.rejected", id, map[string]any{
			"field":  string(kind),
			"reason": outcome.Reason,
		})
		reply = rejectedReply(outcome)
	}

	agentEntry := ls.sess.AppendTranscript(models.SpeakerAgent, reply)
	c.appendDurable(ls, agentEntry)

	c.flush(ls)
	if ls.dirty {
		reply = reply + " " + retryLine
	}

	result := SubmitResult{
		Accepted:  outcome.Accepted,
		Value:     outcome.Value,
		Reason:    outcome.Reason,
		Reply:     reply,
		Completed: ls.sess.Completed(),
		Persisted: !ls.dirty,
	}
	if next, ok := ls.sess.NextUnset(); ok {
		result.Next = next
	}
	c.maybeNotify(ls)
	return result, nil
}

// LogMessage appends one utterance to the transcript and its durable log,
// then writes the snapshot through.
func (c *Controller) LogMessage(id string, speaker models.Speaker, text string) error {
	if id == "" {
		return errors.New("logging message: session id must not be empty")
	}
	if _, err := models.ParseSpeaker(string(speaker)); err != nil {
		return fmt.Errorf("logging message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return err
	}
	entry := ls.sess.AppendTranscript(speaker, text)
	ls.dirty = true
	c.appendDurable(ls, entry)
	c.flush(ls)
	return nil
}

// SaveSession writes the current snapshot to the store. It is idempotent:
// repeated calls with no intervening mutation produce identical records.
func (c *Controller) SaveSession(id string) error {
	if id == "" {
		return errors.New("saving session: id must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return err
	}
	if err := c.store.Save(id, ls.sess.Snapshot()); err != nil {
		c.logEvent("WARN", "storage.write_failed", id, map[string]any{"error": err.Error()})
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	ls.dirty = false
	c.maybeNotify(ls)
	return nil
}

// Summary returns the deterministic summary in fixed field order. When the
// session is complete it also re-attempts any pending persistence; the
// terminal Done state is only reached once the record is durably written.
func (c *Controller) Summary(id string) (SummaryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return SummaryResult{}, err
	}

	if ls.dirty {
		c.flush(ls)
	}

	result := SummaryResult{
		Text:      c.summaryText(ls.sess),
		Completed: ls.sess.Completed(),
	}
	if ls.sess.Completed() && !ls.dirty {
		ls.summaryDone = true
		c.maybeNotify(ls)
	}
	result.Done = ls.summaryDone
	return result, nil
}

// State reports which fields are collected and which remain, for the
// driver's own prompting decisions.
func (c *Controller) State(id string) (map[models.FieldKind]string, []models.FieldKind, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return nil, nil, err
	}
	snap := ls.sess.Snapshot()
	return snap.Fields, ls.sess.Missing(), nil
}

// History returns a copy of the session transcript.
func (c *Controller) History(id string) ([]models.TranscriptEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls, err := c.session(id)
	if err != nil {
		return nil, err
	}
	return ls.sess.Snapshot().Transcript, nil
}

// session returns the live session for id, loading it from the store when it
// is not in memory. A missing durable record starts a fresh session.
// Callers hold c.mu.
func (c *Controller) session(id string) (*liveSession, error) {
	if ls, ok := c.sessions[id]; ok {
		return ls, nil
	}

	rec, err := c.store.Load(id)
	switch {
	case err == nil:
		ls := &liveSession{sess: RestoreSession(*rec), summaryDone: rec.Completed}
		c.sessions[id] = ls
		return ls, nil
	case c.isNotFound(err):
		ls := &liveSession{sess: NewSession(id)}
		c.sessions[id] = ls
		return ls, nil
	}
	return nil, fmt.Errorf("loading session %s: %w", id, err)
}

func (c *Controller) isNotFound(err error) bool {
	if r, ok := c.store.(NotFoundReporter); ok {
		return r.IsNotFound(err)
	}
	return false
}

// appendDurable writes one transcript entry to the append-only log. Failure
// is recoverable: the entry survives in memory and in the next snapshot.
func (c *Controller) appendDurable(ls *liveSession, entry models.TranscriptEntry) {
	if err := c.store.AppendTranscript(ls.sess.ID(), entry); err != nil {
		ls.dirty = true
		c.logEvent("WARN", "storage.append_failed", ls.sess.ID(), map[string]any{"error": err.Error()})
	}
}

// flush writes the snapshot through and clears dirty on success. Callers hold
// c.mu.
func (c *Controller) flush(ls *liveSession) {
	if err := c.store.Save(ls.sess.ID(), ls.sess.Snapshot()); err != nil {
		ls.dirty = true
		c.logEvent("WARN", "storage.write_failed", ls.sess.ID(), map[string]any{"error": err.Error()})
		return
	}
	ls.dirty = false
}

// maybeNotify emits the completion event and webhook once per session, only
// after the completed record is durably written. Callers hold c.mu.
func (c *Controller) maybeNotify(ls *liveSession) {
	if ls.notified || !ls.sess.Completed() || ls.dirty {
		return
	}
	ls.notified = true
	c.logEvent("INFO", "session.completed", ls.sess.ID(), map[string]any{
		"turns": ls.sess.TranscriptLen(),
	})
	if c.notifier != nil {
		if err := c.notifier.SessionCompleted(ls.sess.Snapshot()); err != nil {
			c.logEvent("WARN", "notify.failed", ls.sess.ID(), map[string]any{"error": err.Error()})
		}
	}
}

func (c *Controller) logEvent(level, eventType, sessionID string, data map[string]any) {
	if c.events == nil {
		return
	}
	c.events.LogEvent(level, eventType, sessionID, data)
}

// summaryText renders the collected fields in fixed order: Name, Email,
// Phone, Country.
func (c *Controller) summaryText(s *Session) string {
	var parts []string
	for _, kind := range models.AllFieldKinds() {
		if value, ok := s.Field(kind); ok {
			parts = append(parts, fmt.Sprintf("%s: %s", kind.Label(), value))
		}
	}
	if len(parts) == 0 {
		return "No onboarding data collected yet."
	}
	return "Collected data: " + strings.Join(parts, ", ")
}

// acceptedReply builds the agent's confirmation plus the next prompt.
func acceptedReply(outcome models.ValidationOutcome, s *Session) string {
	confirm := fmt.Sprintf("Got it, your %s is %s.", outcome.Kind, outcome.Value)
	if next, ok := s.NextUnset(); ok {
		return confirm + " " + promptFor(next)
	}
	return confirm + " That completes your onboarding."
}

// rejectedReply builds the agent's re-prompt carrying the rejection reason in
// plain language.
func rejectedReply(outcome models.ValidationOutcome) string {
	return fmt.Sprintf("Sorry, %s. %s", outcome.Reason, promptFor(outcome.Kind))
}

func promptFor(kind models.FieldKind) string {
	switch kind {
	case models.FieldName:
		return "What is your full name?"
	case models.FieldEmail:
		return "What is your email address?"
	case models.FieldPhone:
		return "What is your phone number, including country code?"
	case models.FieldCountry:
		return "Which country are you in?"
	}
	return fmt.Sprintf("What is your %s?", kind)
}
