package heartbeat

import (
	"testing"
	"time"
)

func TestClassify_NoReport(t *testing.T) {
	v := Classify("gmail-poller", nil, time.Now(), 3)

	if v.Health != HealthUnknown {
		t.Errorf("Health = %q, want unknown", v.Health)
	}
	if v.Service != "gmail-poller" {
		t.Errorf("Service = %q, want gmail-poller", v.Service)
	}
}

func TestClassify_StartupFailed(t *testing.T) {
	report := &Report{
		Service: "slack-poller",
		Status:  StatusStartupFailed,
		Errors:  &ErrorInfo{LastError: "missing credential: SLACK_TOKEN"},
	}

	v := Classify("slack-poller", report, time.Now(), 3)

	if v.Health != HealthStartupFailed {
		t.Errorf("Health = %q, want startup-failed", v.Health)
	}
	// lastError surfaces verbatim so a missing credential is diagnosable
	// without reading logs
	if v.Error != "missing credential: SLACK_TOKEN" {
		t.Errorf("Error = %q, want raw lastError", v.Error)
	}
}

func TestClassify_Error(t *testing.T) {
	report := &Report{
		Service: "calendar-poller",
		Status:  StatusError,
		Errors:  &ErrorInfo{LastError: "429 too many requests", CountSinceStart: 7},
	}

	v := Classify("calendar-poller", report, time.Now(), 3)

	if v.Health != HealthError {
		t.Errorf("Health = %q, want error", v.Health)
	}
	if v.ErrorCount != 7 {
		t.Errorf("ErrorCount = %d, want 7", v.ErrorCount)
	}
}

func TestClassify_FreshnessThreshold(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		ageMinutes int64
		want       Health
	}{
		// checkInterval 15min -> threshold 45min
		{"age 46min exceeds threshold", 46, HealthUnresponsive},
		{"age 44min within threshold", 44, HealthHealthy},
		{"age equal to threshold is healthy", 45, HealthHealthy},
		{"fresh check", 1, HealthHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &Report{
				Service:       "gmail-poller",
				Status:        StatusOK,
				LastCheck:     now.Unix() - tt.ageMinutes*60,
				CheckInterval: 15 * 60,
			}

			v := Classify("gmail-poller", report, now, 3)
			if v.Health != tt.want {
				t.Errorf("Health = %q, want %q", v.Health, tt.want)
			}
		})
	}
}

func TestClassify_FreeTextStatusUsesFreshness(t *testing.T) {
	now := time.Now()
	report := &Report{
		Service:       "poller",
		Status:        "draining",
		LastCheck:     now.Unix() - 10,
		CheckInterval: 60,
	}

	v := Classify("poller", report, now, 3)
	if v.Health != HealthHealthy {
		t.Errorf("Health = %q, want healthy for fresh free-text status", v.Health)
	}
}

func TestClassify_MultiplierFallback(t *testing.T) {
	now := time.Now()
	report := &Report{
		Service:       "poller",
		Status:        StatusOK,
		LastCheck:     now.Unix() - 150,
		CheckInterval: 60,
	}

	// Multiplier 0 falls back to the default of 3: threshold 180s, age 150s
	v := Classify("poller", report, now, 0)
	if v.Health != HealthHealthy {
		t.Errorf("Health = %q, want healthy with default multiplier", v.Health)
	}

	// Multiplier 2: threshold 120s, age 150s
	v = Classify("poller", report, now, 2)
	if v.Health != HealthUnresponsive {
		t.Errorf("Health = %q, want unresponsive with multiplier 2", v.Health)
	}
}
