package ops

import (
	"database/sql"

	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/db"
	"github.com/hpungsan/nudge/internal/errors"
)

// PendingInput contains parameters for the Pending operation.
type PendingInput struct {
	// WaitingFor selects the query direction: my-response (someone is
	// waiting on me) or their-response (I'm waiting on them).
	WaitingFor conversation.Waiting

	// Type restricts to one conversation type when non-empty.
	Type string

	// OlderThanSeconds keeps only conversations idle at least this long.
	OlderThanSeconds int64

	// Limit caps the number of results. Zero means no cap.
	Limit int
}

// PendingOutput contains the result of the Pending operation.
type PendingOutput struct {
	Items []*conversation.Conversation `json:"items"`
	Count int                          `json:"count"`
}

// Pending lists active conversations by whose turn it is, oldest activity
// first. Resolved conversations never appear.
func Pending(database *sql.DB, input PendingInput) (*PendingOutput, error) {
	if !input.WaitingFor.Valid() {
		return nil, errors.NewInvalidValue("waiting_for", string(input.WaitingFor), conversation.Waitings)
	}

	opts := db.QueryOptions{
		OlderThanSeconds: input.OlderThanSeconds,
		Limit:            input.Limit,
	}
	if input.Type != "" {
		typ := conversation.Type(input.Type)
		if !typ.Valid() {
			return nil, errors.NewInvalidValue("type", input.Type, conversation.Types)
		}
		opts.Type = typ
	}
	if input.OlderThanSeconds < 0 {
		return nil, errors.NewValidation("older_than_seconds must not be negative")
	}
	if input.Limit < 0 {
		return nil, errors.NewValidation("limit must not be negative")
	}

	var (
		items []*conversation.Conversation
		err   error
	)
	if input.WaitingFor == conversation.WaitingMyResponse {
		items, err = db.PendingMyResponse(database, opts)
	} else {
		items, err = db.AwaitingTheirResponse(database, opts)
	}
	if err != nil {
		return nil, err
	}

	return &PendingOutput{Items: items, Count: len(items)}, nil
}
