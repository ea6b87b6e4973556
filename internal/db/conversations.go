package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/errors"
)

// UpsertConversation inserts or updates a conversation row keyed by id.
// First sight inserts an active row with first_seen defaulting to the
// observation's last_activity. Repeat sight overwrites the mutable columns
// but never touches first_seen, resolved_at, or notified_at.
// Returns true when a new row was created.
func UpsertConversation(db *sql.DB, obs conversation.Observation) (bool, error) {
	var metadataJSON sql.NullString
	if len(obs.Metadata) > 0 {
		data, err := json.Marshal(obs.Metadata)
		if err != nil {
			return false, errors.NewInternal(err)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}

	// Existence check first so callers learn insert-vs-update; the upsert
	// itself is a single atomic statement.
	var exists int
	err := db.QueryRow("SELECT 1 FROM conversations WHERE id = ?", obs.ID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, errors.NewStorage(err)
	}
	created := err == sql.ErrNoRows

	now := time.Now().Unix()
	query := `
		INSERT INTO conversations (
			id, type, subject, from_user, from_name, channel_id, channel_name,
			last_activity, last_sender, waiting_for, first_seen,
			notified_at, resolved_at, metadata_json, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			subject       = excluded.subject,
			from_user     = excluded.from_user,
			from_name     = excluded.from_name,
			channel_id    = excluded.channel_id,
			channel_name  = excluded.channel_name,
			last_activity = excluded.last_activity,
			last_sender   = excluded.last_sender,
			waiting_for   = excluded.waiting_for,
			metadata_json = excluded.metadata_json,
			updated_at    = excluded.updated_at
	`

	_, err = db.Exec(query,
		obs.ID, string(obs.Type), toNullString(obs.Subject), obs.FromUser,
		toNullString(obs.FromName), toNullString(obs.ChannelID), toNullString(obs.ChannelName),
		obs.LastActivity, string(obs.LastSender), string(obs.WaitingFor), obs.LastActivity,
		metadataJSON, now,
	)
	if err != nil {
		return false, errors.NewStorage(err)
	}

	return created, nil
}

// ResolveConversation sets resolved_at if currently null. Idempotent: a
// second call (or a call on an unknown id) affects zero rows and reports
// changed=false without error, keeping callers' retry logic trivially safe.
func ResolveConversation(db *sql.DB, id string) (bool, error) {
	now := time.Now().Unix()

	result, err := db.Exec(
		"UPDATE conversations SET resolved_at = ?, updated_at = ? WHERE id = ? AND resolved_at IS NULL",
		now, now, id,
	)
	if err != nil {
		return false, errors.NewStorage(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStorage(err)
	}
	return rowsAffected > 0, nil
}

// MarkNotified stamps the conversation's notified_at for quick "was this
// ever notified" checks independent of tier granularity.
func MarkNotified(db *sql.DB, id string) error {
	now := time.Now().Unix()

	result, err := db.Exec("UPDATE conversations SET notified_at = ? WHERE id = ?", now, id)
	if err != nil {
		return errors.NewStorage(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewStorage(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("conversation", id)
	}
	return nil
}

// GetConversation retrieves a single conversation by id, resolved or not.
func GetConversation(db *sql.DB, id string) (*conversation.Conversation, error) {
	row := db.QueryRow(selectColumns+" FROM conversations WHERE id = ?", id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("conversation", id)
	}
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	return c, nil
}

// QueryOptions filters the active-conversation queries.
type QueryOptions struct {
	// Type restricts results to one conversation type when non-empty.
	Type conversation.Type

	// OlderThanSeconds keeps only rows whose last_activity is at least
	// this many seconds before now. Zero means no age filter.
	OlderThanSeconds int64

	// Limit caps the number of rows. Zero means no cap.
	Limit int
}

// PendingMyResponse returns active conversations where someone is waiting
// on me, oldest activity first (longest-waiting surfaces first).
func PendingMyResponse(db *sql.DB, opts QueryOptions) ([]*conversation.Conversation, error) {
	return queryActive(db, conversation.WaitingMyResponse, opts)
}

// AwaitingTheirResponse returns active conversations where I'm waiting on
// them, oldest activity first.
func AwaitingTheirResponse(db *sql.DB, opts QueryOptions) ([]*conversation.Conversation, error) {
	return queryActive(db, conversation.WaitingTheirResponse, opts)
}

func queryActive(db *sql.DB, waiting conversation.Waiting, opts QueryOptions) ([]*conversation.Conversation, error) {
	query := selectColumns + ` FROM conversations
		WHERE resolved_at IS NULL AND waiting_for = ?`
	args := []any{string(waiting)}

	if opts.Type != "" {
		query += " AND type = ?"
		args = append(args, string(opts.Type))
	}
	if opts.OlderThanSeconds > 0 {
		query += " AND last_activity <= ?"
		args = append(args, time.Now().Unix()-opts.OlderThanSeconds)
	}

	query += " ORDER BY last_activity ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	var results []*conversation.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errors.NewStorage(err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}

	return results, nil
}

// StatRow is one aggregate bucket of active conversations.
type StatRow struct {
	Type          conversation.Type    `json:"type"`
	WaitingFor    conversation.Waiting `json:"waiting_for"`
	Count         int                  `json:"count"`
	AvgAgeSeconds float64              `json:"avg_age_seconds"`
}

// ConversationStats aggregates active conversations by (type, waiting_for):
// row count and average age in seconds of the last activity.
func ConversationStats(db *sql.DB) ([]StatRow, error) {
	now := time.Now().Unix()
	query := `
		SELECT type, waiting_for, COUNT(*), AVG(? - last_activity)
		FROM conversations
		WHERE resolved_at IS NULL
		GROUP BY type, waiting_for
		ORDER BY type, waiting_for
	`

	rows, err := db.Query(query, now)
	if err != nil {
		return nil, errors.NewStorage(err)
	}
	defer rows.Close()

	var stats []StatRow
	for rows.Next() {
		var s StatRow
		if err := rows.Scan(&s.Type, &s.WaitingFor, &s.Count, &s.AvgAgeSeconds); err != nil {
			return nil, errors.NewStorage(err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage(err)
	}

	return stats, nil
}

const selectColumns = `SELECT id, type, subject, from_user, from_name,
	channel_id, channel_name, last_activity, last_sender, waiting_for,
	first_seen, notified_at, resolved_at, metadata_json, updated_at`

// scanner abstracts *sql.Row and *sql.Rows for scanConversation.
type scanner interface {
	Scan(dest ...any) error
}

// scanConversation scans a single row into a Conversation struct.
func scanConversation(row scanner) (*conversation.Conversation, error) {
	var (
		c            conversation.Conversation
		subject      sql.NullString
		fromName     sql.NullString
		channelID    sql.NullString
		channelName  sql.NullString
		notifiedAt   sql.NullInt64
		resolvedAt   sql.NullInt64
		metadataJSON sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.Type, &subject, &c.FromUser, &fromName,
		&channelID, &channelName, &c.LastActivity, &c.LastSender, &c.WaitingFor,
		&c.FirstSeen, &notifiedAt, &resolvedAt, &metadataJSON, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Subject = fromNullString(subject)
	c.FromName = fromNullString(fromName)
	c.ChannelID = fromNullString(channelID)
	c.ChannelName = fromNullString(channelName)

	if notifiedAt.Valid {
		c.NotifiedAt = &notifiedAt.Int64
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Int64
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &c.Metadata); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
