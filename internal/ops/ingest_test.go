package ops

import (
	"testing"
	"time"

	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/errors"
)

func TestIngest_CreateThenUpdate(t *testing.T) {
	database := testDB(t)

	out, err := Ingest(database, IngestInput{Observation: testObservation("thread-1")})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !out.Created {
		t.Error("Created = false on first sight")
	}

	obs := testObservation("thread-1")
	obs.LastActivity = time.Now().Unix()
	out, err = Ingest(database, IngestInput{Observation: obs})
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if out.Created {
		t.Error("Created = true on repeat sight")
	}
}

func TestIngest_RejectsInvalidObservation(t *testing.T) {
	database := testDB(t)

	obs := testObservation("thread-1")
	obs.WaitingFor = "everyone"

	_, err := Ingest(database, IngestInput{Observation: obs})
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("error = %v, want VALIDATION", err)
	}
}

func TestResolve_Twice(t *testing.T) {
	database := testDB(t)

	if _, err := Ingest(database, IngestInput{Observation: testObservation("thread-1")}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	out, err := Resolve(database, ResolveInput{ID: "thread-1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !out.Changed {
		t.Error("first Resolve: Changed = false, want true")
	}

	out, err = Resolve(database, ResolveInput{ID: "thread-1"})
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if out.Changed {
		t.Error("second Resolve: Changed = true, want false")
	}
}

func TestResolve_RequiresID(t *testing.T) {
	database := testDB(t)

	_, err := Resolve(database, ResolveInput{})
	if !errors.Is(err, errors.ErrValidation) {
		t.Errorf("error = %v, want VALIDATION", err)
	}
}

func TestPending_DirectionAndValidation(t *testing.T) {
	database := testDB(t)

	mine := testObservation("on-me")
	theirs := testObservation("on-them")
	theirs.LastSender = conversation.PartyMe
	theirs.WaitingFor = conversation.WaitingTheirResponse
	for _, obs := range []conversation.Observation{mine, theirs} {
		if _, err := Ingest(database, IngestInput{Observation: obs}); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	out, err := Pending(database, PendingInput{WaitingFor: conversation.WaitingMyResponse})
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if out.Count != 1 || out.Items[0].ID != "on-me" {
		t.Errorf("my-response items = %d, want [on-me]", out.Count)
	}

	out, err = Pending(database, PendingInput{WaitingFor: conversation.WaitingTheirResponse})
	if err != nil {
		t.Fatalf("Pending(their) error = %v", err)
	}
	if out.Count != 1 || out.Items[0].ID != "on-them" {
		t.Errorf("their-response items = %d, want [on-them]", out.Count)
	}

	if _, err := Pending(database, PendingInput{WaitingFor: "anyone"}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("invalid waiting_for: error = %v, want VALIDATION", err)
	}
	if _, err := Pending(database, PendingInput{
		WaitingFor: conversation.WaitingMyResponse,
		Type:       "sms",
	}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("invalid type: error = %v, want VALIDATION", err)
	}
}

func TestStats(t *testing.T) {
	database := testDB(t)

	for _, id := range []string{"a", "b"} {
		if _, err := Ingest(database, IngestInput{Observation: testObservation(id)}); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	out, err := Stats(database)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if out.TotalActive != 2 {
		t.Errorf("TotalActive = %d, want 2", out.TotalActive)
	}
	if len(out.Buckets) != 1 {
		t.Errorf("len(Buckets) = %d, want 1", len(out.Buckets))
	}
}
