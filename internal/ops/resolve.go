package ops

import (
	"database/sql"

	"github.com/hpungsan/nudge/internal/db"
	"github.com/hpungsan/nudge/internal/errors"
)

// ResolveInput contains parameters for the Resolve operation.
type ResolveInput struct {
	ID string
}

// ResolveOutput contains the result of the Resolve operation.
type ResolveOutput struct {
	ID string `json:"id"`

	// Changed is false when the conversation was already resolved (or the
	// id is unknown) — a no-op, not an error, so retries are safe.
	Changed bool `json:"changed"`
}

// Resolve marks a conversation resolved. The transition happens exactly
// once; repeat calls report Changed=false.
func Resolve(database *sql.DB, input ResolveInput) (*ResolveOutput, error) {
	if input.ID == "" {
		return nil, errors.NewMissingField("id")
	}

	changed, err := db.ResolveConversation(database, input.ID)
	if err != nil {
		return nil, err
	}

	return &ResolveOutput{ID: input.ID, Changed: changed}, nil
}
