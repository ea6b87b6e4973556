package heartbeat

import "time"

// Health is the derived verdict for a service.
type Health string

const (
	HealthUnknown       Health = "unknown"
	HealthStartupFailed Health = "startup-failed"
	HealthError         Health = "error"
	HealthUnresponsive  Health = "unresponsive"
	HealthHealthy       Health = "healthy"
)

// DefaultUnresponsiveMultiplier is the number of consecutive missed check
// cycles tolerated before a service is presumed stuck or dead. Three misses
// absorbs transient slow cycles without false alarms.
const DefaultUnresponsiveMultiplier = 3

// Verdict is the classification of one service's latest snapshot.
type Verdict struct {
	Service    string `json:"service"`
	Health     Health `json:"health"`
	Error      string `json:"error,omitempty"`
	ErrorCount int    `json:"errorCount,omitempty"`
	AgeSeconds int64  `json:"ageSeconds,omitempty"`
}

// Classify derives a health verdict from the latest snapshot. Pure: a nil
// report means no report was found and yields unknown. The multiplier
// scales the service's self-declared checkInterval into the unresponsive
// threshold; values < 1 fall back to the default.
func Classify(service string, report *Report, now time.Time, multiplier int) Verdict {
	if report == nil {
		return Verdict{Service: service, Health: HealthUnknown}
	}
	if multiplier < 1 {
		multiplier = DefaultUnresponsiveMultiplier
	}

	switch report.Status {
	case StatusStartupFailed:
		v := Verdict{Service: report.Service, Health: HealthStartupFailed}
		if report.Errors != nil {
			v.Error = report.Errors.LastError
		}
		return v
	case StatusError:
		v := Verdict{Service: report.Service, Health: HealthError}
		if report.Errors != nil {
			v.Error = report.Errors.LastError
			v.ErrorCount = report.Errors.CountSinceStart
		}
		return v
	}

	age := now.Unix() - report.LastCheck
	threshold := int64(multiplier) * report.CheckInterval
	if age > threshold {
		return Verdict{Service: report.Service, Health: HealthUnresponsive, AgeSeconds: age}
	}
	return Verdict{Service: report.Service, Health: HealthHealthy, AgeSeconds: age}
}
