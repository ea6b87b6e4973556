package ops

import (
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/db"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func stringPtr(s string) *string {
	return &s
}

func testObservation(id string) conversation.Observation {
	return conversation.Observation{
		ID:           id,
		Type:         conversation.TypeEmail,
		FromUser:     "alice@example.com",
		FromName:     stringPtr("Alice"),
		Subject:      stringPtr("Q3 planning"),
		LastActivity: time.Now().Unix() - 3600,
		LastSender:   conversation.PartyThem,
		WaitingFor:   conversation.WaitingMyResponse,
	}
}
