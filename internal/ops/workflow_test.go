package ops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/nudge/internal/config"
	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/db"
	"github.com/hpungsan/nudge/internal/heartbeat"
)

// TestFullWorkflow exercises a poller's complete cycle:
// ingest → pending → notify (gated) → resolve → pending (empty) → beat → health
func TestFullWorkflow(t *testing.T) {
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	require.NoError(t, err)
	defer database.Close()

	hbStore, err := heartbeat.NewStore(baseDir)
	require.NoError(t, err)

	cfg := config.DefaultConfig()

	// 1. A poller observes an unreplied email
	obs := testObservation("thread-lifecycle")
	ingestOut, err := Ingest(database, IngestInput{Observation: obs})
	require.NoError(t, err)
	require.True(t, ingestOut.Created)

	// Re-processing the same raw event is a no-op update, not a duplicate
	ingestOut, err = Ingest(database, IngestInput{Observation: obs})
	require.NoError(t, err)
	require.False(t, ingestOut.Created)

	// 2. It surfaces in the pending queue
	pendingOut, err := Pending(database, PendingInput{WaitingFor: conversation.WaitingMyResponse})
	require.NoError(t, err)
	require.Equal(t, 1, pendingOut.Count)
	require.Equal(t, "thread-lifecycle", pendingOut.Items[0].ID)

	// 3. The immediate tier fires once and only once
	notifyOut, err := Notify(database, NotifyInput{ConversationID: "thread-lifecycle", Tier: conversation.TierImmediate})
	require.NoError(t, err)
	require.True(t, notifyOut.ShouldSend)

	notifyOut, err = Notify(database, NotifyInput{ConversationID: "thread-lifecycle", Tier: conversation.TierImmediate})
	require.NoError(t, err)
	require.False(t, notifyOut.ShouldSend)

	historyOut, err := History(database, "thread-lifecycle")
	require.NoError(t, err)
	require.Len(t, historyOut.Entries, 1)

	// 4. They reply; the conversation resolves exactly once
	resolveOut, err := Resolve(database, ResolveInput{ID: "thread-lifecycle"})
	require.NoError(t, err)
	require.True(t, resolveOut.Changed)

	resolveOut, err = Resolve(database, ResolveInput{ID: "thread-lifecycle"})
	require.NoError(t, err)
	require.False(t, resolveOut.Changed)

	// 5. Resolved conversations leave the queue but stay queryable
	pendingOut, err = Pending(database, PendingInput{WaitingFor: conversation.WaitingMyResponse})
	require.NoError(t, err)
	require.Equal(t, 0, pendingOut.Count)

	c, err := db.GetConversation(database, "thread-lifecycle")
	require.NoError(t, err)
	require.NotNil(t, c.ResolvedAt)
	require.NotNil(t, c.NotifiedAt)

	// 6. The poller reports its own liveness at cycle end
	_, err = Beat(hbStore, BeatInput{Service: "email-monitor", CheckInterval: 900})
	require.NoError(t, err)

	healthOut, err := Health(hbStore, cfg)
	require.NoError(t, err)
	require.Len(t, healthOut.Services, 1)
	require.Equal(t, heartbeat.HealthHealthy, healthOut.Services[0].Health)
}
