package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/nudge/internal/config"
	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/errors"
	"github.com/hpungsan/nudge/internal/heartbeat"
	"github.com/hpungsan/nudge/internal/meeting"
	"github.com/hpungsan/nudge/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	hb       *heartbeat.Store
	meetings *meeting.Store
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, hb *heartbeat.Store, meetings *meeting.Store) *Handlers {
	return &Handlers{db: db, cfg: cfg, hb: hb, meetings: meetings}
}

// Request types for each tool

// IngestRequest represents the arguments for conversation_ingest.
type IngestRequest struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	FromUser     string         `json:"from_user"`
	FromName     *string        `json:"from_name,omitempty"`
	Subject      *string        `json:"subject,omitempty"`
	ChannelID    *string        `json:"channel_id,omitempty"`
	ChannelName  *string        `json:"channel_name,omitempty"`
	LastActivity int64          `json:"last_activity"`
	LastSender   string         `json:"last_sender"`
	WaitingFor   string         `json:"waiting_for"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ResolveRequest represents the arguments for conversation_resolve.
type ResolveRequest struct {
	ID string `json:"id"`
}

// PendingRequest represents the arguments for conversation_pending.
type PendingRequest struct {
	WaitingFor       string `json:"waiting_for"`
	Type             string `json:"type,omitempty"`
	OlderThanSeconds int64  `json:"older_than_seconds,omitempty"`
	Limit            int    `json:"limit,omitempty"`
}

// NotifyRequest represents the arguments for notification_gate.
type NotifyRequest struct {
	ConversationID string `json:"conversation_id"`
	Tier           string `json:"tier"`
}

// MeetingsRequest represents the arguments for meeting_upcoming.
type MeetingsRequest struct {
	MinutesAhead int `json:"minutes_ahead"`
}

// HandleIngest handles the conversation_ingest tool call.
func (h *Handlers) HandleIngest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IngestRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Ingest(h.db, ops.IngestInput{
		Observation: conversation.Observation{
			ID:           input.ID,
			Type:         conversation.Type(input.Type),
			FromUser:     input.FromUser,
			FromName:     input.FromName,
			Subject:      input.Subject,
			ChannelID:    input.ChannelID,
			ChannelName:  input.ChannelName,
			LastActivity: input.LastActivity,
			LastSender:   conversation.Party(input.LastSender),
			WaitingFor:   conversation.Waiting(input.WaitingFor),
			Metadata:     input.Metadata,
		},
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleResolve handles the conversation_resolve tool call.
func (h *Handlers) HandleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResolveRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Resolve(h.db, ops.ResolveInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePending handles the conversation_pending tool call.
func (h *Handlers) HandlePending(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PendingRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Pending(h.db, ops.PendingInput{
		WaitingFor:       conversation.Waiting(input.WaitingFor),
		Type:             input.Type,
		OlderThanSeconds: input.OlderThanSeconds,
		Limit:            input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the conversation_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Stats(h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleNotify handles the notification_gate tool call.
func (h *Handlers) HandleNotify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NotifyRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Notify(h.db, ops.NotifyInput{
		ConversationID: input.ConversationID,
		Tier:           conversation.Tier(input.Tier),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHealth handles the service_health tool call.
func (h *Handlers) HandleHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Health(h.hb, h.cfg)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMeetings handles the meeting_upcoming tool call.
func (h *Handlers) HandleMeetings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MeetingsRequest](req)
	if err != nil {
		return errorResult(errors.NewValidation(err.Error())), nil
	}

	result, err := ops.Meetings(h.meetings, h.cfg, ops.MeetingsInput{MinutesAhead: input.MinutesAhead})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if eErr, ok := err.(*errors.EngineError); ok {
		errorObj := map[string]any{
			"code":    eErr.Code,
			"message": eErr.Message,
			"status":  eErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if eErr.Code != errors.ErrInternal && eErr.Code != errors.ErrStorage && eErr.Details != nil {
			errorObj["details"] = eErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
