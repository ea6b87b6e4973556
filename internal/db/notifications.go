package db

import (
	"database/sql"
	"time"

	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/errors"
)

// NotificationEntry is one immutable row of the escalation ledger.
type NotificationEntry struct {
	ConversationID string            `json:"conversation_id"`
	Tier           conversation.Tier `json:"tier"`
	SentAt         int64             `json:"sent_at"`
}

// LogNotification appends an entry to the escalation ledger. Unconditional:
// callers gate repeat sends via WasNotified beforehand.
func LogNotification(db *sql.DB, conversationID string, tier conversation.Tier) error {
	_, err := db.Exec(
		"INSERT INTO notification_log (conversation_id, notification_type, sent_at) VALUES (?, ?, ?)",
		conversationID, string(tier), time.Now().Unix(),
	)
	if err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// WasNotified reports whether the ledger already holds an entry for this
// (conversation, tier) pair. Existence of an entry is the sole gate against
// re-sending that tier.
func WasNotified(db *sql.DB, conversationID string, tier conversation.Tier) (bool, error) {
	var exists int
	err := db.QueryRow(
		"SELECT 1 FROM notification_log WHERE conversation_id = ? AND notification_type = ? LIMIT 1",
		conversationID, string(tier),
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStorage(err)
	}
	return true, nil
}

// NotificationHistory returns every ledger entry for a conversation in
// send order, for audit surfaces.
func NotificationHistory(db *sql.DB, conversationID string) ([]NotificationEntry, error) {
	rows, err := db.Query(
		"SELECT conversation_id, notification_type, sent_at FROM notification_log WHERE conversation_id = ? ORDER BY sent_at ASC, id ASC",
		conversationID,
	)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	var entries []NotificationEntry
	for rows.Next() {
		var e NotificationEntry
		if err := rows.Scan(&e.ConversationID, &e.Tier, &e.SentAt); err != nil {
			return nil, errors.NewStorage(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}

	return entries, nil
}
