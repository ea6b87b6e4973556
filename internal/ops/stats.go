package ops

import (
	"database/sql"

	"github.com/hpungsan/nudge/internal/db"
)

// StatsOutput contains the result of the Stats operation.
type StatsOutput struct {
	Buckets []db.StatRow `json:"buckets"`

	// TotalActive is the sum across buckets.
	TotalActive int `json:"total_active"`
}

// Stats aggregates active conversations by (type, waiting_for) for
// dashboard surfaces. Not used for alerting.
func Stats(database *sql.DB) (*StatsOutput, error) {
	buckets, err := db.ConversationStats(database)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, b := range buckets {
		total += b.Count
	}

	return &StatsOutput{Buckets: buckets, TotalActive: total}, nil
}
