// Package mcp exposes the onboarding controller as MCP (Model Context
// Protocol) tools for the conversation driver: the speech/LLM layer extracts
// an utterance and a target field, calls these tools, and speaks the results
// back to the user.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tomaspereira-au/onboard-agent/internal/core"
	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// Server wraps the onboarding controller and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	ctrl   *core.Controller
}

// NewServer creates an MCP server around the given controller.
func NewServer(ctrl *core.Controller, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{ctrl: ctrl}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "onboard", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type startSessionInput struct{}

type startSessionOutput struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type validateFieldInput struct {
	Field string `json:"field" jsonschema:"required,one of name, email, phone, country"`
	Value string `json:"value" jsonschema:"required,the raw user-provided value to check"`
}

type validateFieldOutput struct {
	Field  string `json:"field"`
	Valid  bool   `json:"valid"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type storeFieldInput struct {
	SessionID string `json:"session_id" jsonschema:"required,the onboarding session identifier"`
	Field     string `json:"field" jsonschema:"required,one of name, email, phone, country"`
	Value     string `json:"value" jsonschema:"required,the raw user utterance for this field"`
}

type storeFieldOutput struct {
	Accepted  bool   `json:"accepted"`
	Value     string `json:"value,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Reply     string `json:"reply"`
	NextField string `json:"next_field,omitempty"`
	Completed bool   `json:"completed"`
	Persisted bool   `json:"persisted"`
}

type sessionIDInput struct {
	SessionID string `json:"session_id" jsonschema:"required,the onboarding session identifier"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type getSummaryOutput struct {
	Summary   string `json:"summary"`
	Completed bool   `json:"completed"`
	Done      bool   `json:"done"`
}

type logMessageInput struct {
	SessionID string `json:"session_id" jsonschema:"required,the onboarding session identifier"`
	Speaker   string `json:"speaker" jsonschema:"required,either user or agent"`
	Text      string `json:"text" jsonschema:"required,the utterance text to log"`
}

type loadSessionOutput struct {
	Message   string `json:"message"`
	Fields    int    `json:"fields_collected"`
	Turns     int    `json:"transcript_turns"`
	Completed bool   `json:"completed"`
	NextField string `json:"next_field,omitempty"`
}

type completeOutput struct {
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing,omitempty"`
}

type currentStateOutput struct {
	Fields  map[string]string `json:"fields"`
	Missing []string          `json:"missing,omitempty"`
	Phase   string            `json:"phase"`
}

type transcriptEntryOutput struct {
	Seq       int    `json:"seq"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp string `json:"ts"`
}

type historyOutput struct {
	Entries []transcriptEntryOutput `json:"entries"`
	Count   int                     `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_session",
		Description: "Start a new onboarding session. Returns the session identifier to use for all other calls.",
	}, s.handleStartSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "validate_field",
		Description: "Check a raw value against a field's format rule without storing anything. Returns valid plus the normalized value, or the rejection reason.",
	}, s.handleValidateField)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "store_field",
		Description: "Validate a user utterance for a field and, if accepted, store it in the session. Both the utterance and the agent reply are logged to the transcript. Returns the reply to speak back.",
	}, s.handleStoreField)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "save_current_session",
		Description: "Write the session's current snapshot to durable storage. Idempotent; use after failed writes to retry persistence.",
	}, s.handleSaveSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_summary",
		Description: "Get the deterministic summary of collected data in fixed order: Name, Email, Phone, Country.",
	}, s.handleGetSummary)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "log_message",
		Description: "Append one spoken exchange to the session transcript. Speaker is user or agent.",
	}, s.handleLogMessage)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "load_session",
		Description: "Load a session from durable storage into memory. A missing record starts a fresh session under the given id.",
	}, s.handleLoadSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reset_session",
		Description: "Discard a session's collected state and start over under the same id.",
	}, s.handleResetSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "is_onboarding_complete",
		Description: "Check whether all four fields have accepted values. Returns the missing fields when incomplete.",
	}, s.handleIsComplete)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_current_state",
		Description: "Get the per-field collection state: accepted values, missing fields, and the protocol phase.",
	}, s.handleCurrentState)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_conversation_history",
		Description: "Get the ordered session transcript.",
	}, s.handleHistory)
}

// --- Tool handlers ---

func (s *Server) handleStartSession(_ context.Context, _ *gomcp.CallToolRequest, _ startSessionInput) (*gomcp.CallToolResult, startSessionOutput, error) {
	id, err := s.ctrl.StartSession()
	if err != nil {
		// The session exists in memory; the driver can proceed and retry
		// persistence via save_current_session.
		return nil, startSessionOutput{
			SessionID: id,
			Message:   fmt.Sprintf("session %s started, but the initial save failed; retry with save_current_session", id),
		}, nil
	}
	return nil, startSessionOutput{
		SessionID: id,
		Message:   fmt.Sprintf("session %s started", id),
	}, nil
}

func (s *Server) handleValidateField(_ context.Context, _ *gomcp.CallToolRequest, input validateFieldInput) (*gomcp.CallToolResult, validateFieldOutput, error) {
	kind, err := models.ParseFieldKind(input.Field)
	if err != nil {
		return errorResult(err.Error()), validateFieldOutput{}, nil
	}

	outcome := s.ctrl.Validator().Validate(kind, input.Value)
	return nil, validateFieldOutput{
		Field:  string(kind),
		Valid:  outcome.Accepted,
		Value:  outcome.Value,
		Reason: outcome.Reason,
	}, nil
}

func (s *Server) handleStoreField(_ context.Context, _ *gomcp.CallToolRequest, input storeFieldInput) (*gomcp.CallToolResult, storeFieldOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), storeFieldOutput{}, nil
	}
	kind, err := models.ParseFieldKind(input.Field)
	if err != nil {
		return errorResult(err.Error()), storeFieldOutput{}, nil
	}

	result, err := s.ctrl.SubmitField(input.SessionID, kind, input.Value)
	if err != nil {
		return errorResult(fmt.Sprintf("storing field %s: %s", input.Field, err)), storeFieldOutput{}, nil
	}

	return nil, storeFieldOutput{
		Accepted:  result.Accepted,
		Value:     result.Value,
		Reason:    result.Reason,
		Reply:     result.Reply,
		NextField: string(result.Next),
		Completed: result.Completed,
		Persisted: result.Persisted,
	}, nil
}

func (s *Server) handleSaveSession(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), messageOutput{}, nil
	}

	if err := s.ctrl.SaveSession(input.SessionID); err != nil {
		return errorResult(fmt.Sprintf("saving session %s: %s", input.SessionID, err)), messageOutput{}, nil
	}
	return nil, messageOutput{
		Message: fmt.Sprintf("session %s saved", input.SessionID),
	}, nil
}

func (s *Server) handleGetSummary(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, getSummaryOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), getSummaryOutput{}, nil
	}

	result, err := s.ctrl.Summary(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("summarizing session %s: %s", input.SessionID, err)), getSummaryOutput{}, nil
	}
	return nil, getSummaryOutput{
		Summary:   result.Text,
		Completed: result.Completed,
		Done:      result.Done,
	}, nil
}

func (s *Server) handleLogMessage(_ context.Context, _ *gomcp.CallToolRequest, input logMessageInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), messageOutput{}, nil
	}
	speaker, err := models.ParseSpeaker(input.Speaker)
	if err != nil {
		return errorResult(err.Error()), messageOutput{}, nil
	}

	if err := s.ctrl.LogMessage(input.SessionID, speaker, input.Text); err != nil {
		return errorResult(fmt.Sprintf("logging message: %s", err)), messageOutput{}, nil
	}
	return nil, messageOutput{
		Message: fmt.Sprintf("%s message logged for session %s", speaker, input.SessionID),
	}, nil
}

func (s *Server) handleLoadSession(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, loadSessionOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), loadSessionOutput{}, nil
	}

	rec, err := s.ctrl.LoadSession(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("loading session %s: %s", input.SessionID, err)), loadSessionOutput{}, nil
	}

	out := loadSessionOutput{
		Message:   fmt.Sprintf("session %s loaded with %d transcript turns", input.SessionID, len(rec.Transcript)),
		Fields:    len(rec.Fields),
		Turns:     len(rec.Transcript),
		Completed: rec.Completed,
	}
	if next, ok, err := s.ctrl.NextField(input.SessionID); err == nil && ok {
		out.NextField = string(next)
	}
	return nil, out, nil
}

func (s *Server) handleResetSession(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), messageOutput{}, nil
	}

	if err := s.ctrl.ResetSession(input.SessionID); err != nil {
		return errorResult(fmt.Sprintf("resetting session %s: %s", input.SessionID, err)), messageOutput{}, nil
	}
	return nil, messageOutput{
		Message: fmt.Sprintf("session %s reset", input.SessionID),
	}, nil
}

func (s *Server) handleIsComplete(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, completeOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), completeOutput{}, nil
	}

	_, missing, err := s.ctrl.State(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("checking session %s: %s", input.SessionID, err)), completeOutput{}, nil
	}

	out := completeOutput{Complete: len(missing) == 0}
	for _, kind := range missing {
		out.Missing = append(out.Missing, string(kind))
	}
	return nil, out, nil
}

func (s *Server) handleCurrentState(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, currentStateOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), currentStateOutput{}, nil
	}

	fields, missing, err := s.ctrl.State(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("reading session %s state: %s", input.SessionID, err)), currentStateOutput{}, nil
	}
	phase, err := s.ctrl.Phase(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("reading session %s phase: %s", input.SessionID, err)), currentStateOutput{}, nil
	}

	out := currentStateOutput{
		Fields: make(map[string]string, len(fields)),
		Phase:  string(phase),
	}
	for kind, value := range fields {
		out.Fields[string(kind)] = value
	}
	for _, kind := range missing {
		out.Missing = append(out.Missing, string(kind))
	}
	return nil, out, nil
}

func (s *Server) handleHistory(_ context.Context, _ *gomcp.CallToolRequest, input sessionIDInput) (*gomcp.CallToolResult, historyOutput, error) {
	if input.SessionID == "" {
		return errorResult("session_id is required"), historyOutput{}, nil
	}

	entries, err := s.ctrl.History(input.SessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("reading session %s history: %s", input.SessionID, err)), historyOutput{}, nil
	}

	out := historyOutput{
		Entries: make([]transcriptEntryOutput, len(entries)),
		Count:   len(entries),
	}
	for i, e := range entries {
		out.Entries[i] = transcriptEntryOutput{
			Seq:       e.Seq,
			Speaker:   string(e.Speaker),
			Text:      e.Text,
			Timestamp: e.Timestamp.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
