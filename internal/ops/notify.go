package ops

import (
	"database/sql"

	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/db"
	"github.com/hpungsan/nudge/internal/errors"
)

// NotifyInput contains parameters for the Notify operation.
type NotifyInput struct {
	ConversationID string
	Tier           conversation.Tier
}

// NotifyOutput contains the result of the Notify operation.
type NotifyOutput struct {
	ConversationID string            `json:"conversation_id"`
	Tier           conversation.Tier `json:"tier"`

	// ShouldSend is true when this call claimed the tier: the caller may
	// send the notification. False means the tier already fired.
	ShouldSend bool `json:"should_send"`
}

// Notify gates an escalation tier for a conversation. The first call for a
// (conversation, tier) pair appends a ledger entry, stamps the
// conversation's notified_at, and reports ShouldSend=true; every later
// call reports ShouldSend=false. Re-processing the same event can never
// double-send a tier.
func Notify(database *sql.DB, input NotifyInput) (*NotifyOutput, error) {
	if input.ConversationID == "" {
		return nil, errors.NewMissingField("conversation_id")
	}
	if !input.Tier.Valid() {
		return nil, errors.NewInvalidValue("tier", string(input.Tier), conversation.Tiers)
	}

	// The conversation must exist; the ledger is meaningless otherwise.
	if _, err := db.GetConversation(database, input.ConversationID); err != nil {
		return nil, err
	}

	sent, err := db.WasNotified(database, input.ConversationID, input.Tier)
	if err != nil {
		return nil, err
	}
	if sent {
		return &NotifyOutput{
			ConversationID: input.ConversationID,
			Tier:           input.Tier,
			ShouldSend:     false,
		}, nil
	}

	if err := db.LogNotification(database, input.ConversationID, input.Tier); err != nil {
		return nil, err
	}
	if err := db.MarkNotified(database, input.ConversationID); err != nil {
		return nil, err
	}

	return &NotifyOutput{
		ConversationID: input.ConversationID,
		Tier:           input.Tier,
		ShouldSend:     true,
	}, nil
}

// HistoryOutput contains a conversation's full escalation ledger.
type HistoryOutput struct {
	Entries []db.NotificationEntry `json:"entries"`
}

// History returns every tier fired for a conversation, in send order.
func History(database *sql.DB, conversationID string) (*HistoryOutput, error) {
	if conversationID == "" {
		return nil, errors.NewMissingField("conversation_id")
	}

	entries, err := db.NotificationHistory(database, conversationID)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Entries: entries}, nil
}
