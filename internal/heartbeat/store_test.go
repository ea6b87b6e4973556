package heartbeat

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/nudge/internal/errors"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestWrite_Defaults(t *testing.T) {
	s := testStore(t)

	report, err := s.Write("gmail-poller", Fields{CheckInterval: 900})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if report.PID != os.Getpid() {
		t.Errorf("PID = %d, want current process %d", report.PID, os.Getpid())
	}
	if report.Status != StatusOK {
		t.Errorf("Status = %q, want default ok", report.Status)
	}
	if report.StartedAt == 0 || report.LastCheck == 0 {
		t.Error("StartedAt/LastCheck not stamped")
	}
}

func TestWrite_PreservesStartedAt(t *testing.T) {
	s := testStore(t)

	first, err := s.Write("gmail-poller", Fields{CheckInterval: 900})
	if err != nil {
		t.Fatalf("first Write(): %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	second, err := s.Write("gmail-poller", Fields{
		CheckInterval: 900,
		Status:        StatusOK,
		Metrics:       map[string]any{"messages_seen": 12},
	})
	if err != nil {
		t.Fatalf("second Write(): %v", err)
	}

	if second.StartedAt != first.StartedAt {
		t.Errorf("StartedAt changed across writes: %d -> %d", first.StartedAt, second.StartedAt)
	}
	if second.LastCheck <= first.LastCheck {
		t.Errorf("LastCheck not refreshed: %d -> %d", first.LastCheck, second.LastCheck)
	}
}

func TestWrite_Validation(t *testing.T) {
	s := testStore(t)

	if _, err := s.Write("", Fields{CheckInterval: 60}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("empty service: error = %v, want VALIDATION", err)
	}
	if _, err := s.Write("../escape", Fields{CheckInterval: 60}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("path traversal: error = %v, want VALIDATION", err)
	}
	if _, err := s.Write("poller", Fields{}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("missing checkInterval: error = %v, want VALIDATION", err)
	}
}

func TestRead_RoundTrip(t *testing.T) {
	s := testStore(t)

	written, err := s.Write("slack-poller", Fields{
		CheckInterval: 120,
		Status:        StatusError,
		Errors:        &ErrorInfo{LastError: "rate limited", CountSinceStart: 3},
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	read, err := s.Read("slack-poller")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if read.Service != "slack-poller" {
		t.Errorf("Service = %q, want slack-poller", read.Service)
	}
	if read.LastCheck != written.LastCheck {
		t.Errorf("LastCheck = %d, want %d", read.LastCheck, written.LastCheck)
	}
	if read.Errors == nil || read.Errors.CountSinceStart != 3 {
		t.Errorf("Errors = %+v, want countSinceStart 3", read.Errors)
	}
}

func TestRead_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.Read("never-reported")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestRead_Corrupt(t *testing.T) {
	s := testStore(t)

	if err := os.WriteFile(filepath.Join(s.dir, "broken.json"), []byte("{torn"), 0600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := s.Read("broken")
	if !errors.Is(err, errors.ErrCorruptState) {
		t.Errorf("error = %v, want CORRUPT_STATE", err)
	}
}

func TestReadAll(t *testing.T) {
	s := testStore(t)

	for _, svc := range []string{"gmail-poller", "slack-poller"} {
		if _, err := s.Write(svc, Fields{CheckInterval: 60}); err != nil {
			t.Fatalf("Write(%s): %v", svc, err)
		}
	}
	if err := os.WriteFile(filepath.Join(s.dir, "broken.json"), []byte("not json"), 0600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	reports, corrupt, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("len(reports) = %d, want 2", len(reports))
	}
	if len(corrupt) != 1 || corrupt[0] != "broken" {
		t.Errorf("corrupt = %v, want [broken]", corrupt)
	}
}

func TestReadAll_EmptyDir(t *testing.T) {
	s := testStore(t)

	reports, corrupt, err := s.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(reports) != 0 || len(corrupt) != 0 {
		t.Errorf("reports = %v, corrupt = %v, want empty", reports, corrupt)
	}
}

// Rapid interleaved writes and reads must never yield a report that fails
// to parse or mixes fields from two different writes.
func TestWriteRead_NeverTorn(t *testing.T) {
	s := testStore(t)

	if _, err := s.Write("poller", Fields{CheckInterval: 60}); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, err := s.Write("poller", Fields{
				CheckInterval: 60,
				Metrics:       map[string]any{"cycle": i, "pad": string(make([]byte, 4096))},
			})
			if err != nil {
				t.Errorf("Write() error = %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		report, err := s.Read("poller")
		if err != nil {
			t.Fatalf("Read() error = %v (torn write?)", err)
		}
		if report.CheckInterval != 60 {
			t.Fatalf("CheckInterval = %d, want 60 (mixed write?)", report.CheckInterval)
		}
	}

	close(stop)
	wg.Wait()

	// The final file must be valid JSON in full
	data, err := os.ReadFile(filepath.Join(s.dir, "poller.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("final file unparseable: %v", err)
	}
}
