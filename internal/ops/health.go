package ops

import (
	"time"

	"github.com/hpungsan/nudge/internal/config"
	"github.com/hpungsan/nudge/internal/errors"
	"github.com/hpungsan/nudge/internal/heartbeat"
)

// HealthOutput contains the result of the Health operation.
type HealthOutput struct {
	Services []heartbeat.Verdict `json:"services"`

	// Corrupt lists services whose report file could not be parsed. They
	// are also classified (as unknown) in Services.
	Corrupt []string `json:"corrupt,omitempty"`
}

// Health classifies every known service's latest heartbeat.
func Health(store *heartbeat.Store, cfg *config.Config) (*HealthOutput, error) {
	reports, corrupt, err := store.ReadAll()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := &HealthOutput{Corrupt: corrupt}
	for _, report := range reports {
		out.Services = append(out.Services, heartbeat.Classify(report.Service, report, now, cfg.UnresponsiveMultiplier))
	}
	for _, service := range corrupt {
		out.Services = append(out.Services, heartbeat.Classify(service, nil, now, cfg.UnresponsiveMultiplier))
	}

	return out, nil
}

// ServiceHealth classifies one service. An absent report is a verdict
// (unknown), not an error.
func ServiceHealth(store *heartbeat.Store, cfg *config.Config, service string) (*heartbeat.Verdict, error) {
	report, err := store.Read(service)
	if err != nil && !errors.Is(err, errors.ErrNotFound) && !errors.Is(err, errors.ErrCorruptState) {
		return nil, err
	}

	v := heartbeat.Classify(service, report, time.Now(), cfg.UnresponsiveMultiplier)
	return &v, nil
}

// BeatInput contains parameters for the Beat operation.
type BeatInput struct {
	Service       string
	CheckInterval int64
	Status        string
	Metrics       map[string]any
	Errors        *heartbeat.ErrorInfo
}

// BeatOutput contains the result of the Beat operation.
type BeatOutput struct {
	Report *heartbeat.Report `json:"report"`
}

// Beat records a service's heartbeat self-report. Used by pollers (via
// the CLI) at the end of every check cycle.
func Beat(store *heartbeat.Store, input BeatInput) (*BeatOutput, error) {
	report, err := store.Write(input.Service, heartbeat.Fields{
		CheckInterval: input.CheckInterval,
		Status:        input.Status,
		Metrics:       input.Metrics,
		Errors:        input.Errors,
	})
	if err != nil {
		return nil, err
	}
	return &BeatOutput{Report: report}, nil
}
