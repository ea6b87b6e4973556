// Package ops implements the operations behind every surface (CLI, MCP,
// web). Each operation validates its input up front, delegates storage to
// the db and state packages, and returns a typed output.
package ops

import (
	"database/sql"

	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/db"
)

// IngestInput contains parameters for the Ingest operation.
type IngestInput struct {
	Observation conversation.Observation
}

// IngestOutput contains the result of the Ingest operation.
type IngestOutput struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// Ingest records a raw conversation observation from a poller:
// insert-or-update keyed by the conversation id. Re-processing the same
// observation never creates a duplicate row.
func Ingest(database *sql.DB, input IngestInput) (*IngestOutput, error) {
	if err := input.Observation.Validate(); err != nil {
		return nil, err
	}

	created, err := db.UpsertConversation(database, input.Observation)
	if err != nil {
		return nil, err
	}

	return &IngestOutput{ID: input.Observation.ID, Created: created}, nil
}
