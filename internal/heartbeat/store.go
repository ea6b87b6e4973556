// Package heartbeat persists poller self-reports and classifies their
// health from the latest snapshot.
package heartbeat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/nudge/internal/errors"
)

// Reserved status values. Anything else classifies through the
// freshness path.
const (
	StatusOK            = "ok"
	StatusError         = "error"
	StatusStartupFailed = "startup-failed"
)

// ErrorInfo summarizes a service's error history since start.
type ErrorInfo struct {
	LastError       string `json:"lastError,omitempty"`
	LastErrorAt     int64  `json:"lastErrorAt,omitempty"`
	CountSinceStart int    `json:"countSinceStart,omitempty"`
}

// Report is one service's self-reported liveness snapshot. Owned and
// overwritten exclusively by the service describing itself.
type Report struct {
	Service string `json:"service"`
	PID     int    `json:"pid"`

	// StartedAt is preserved from the first write
	StartedAt int64 `json:"startedAt"`

	// LastCheck is refreshed on every cycle
	LastCheck int64 `json:"lastCheck"`

	// CheckInterval is the service's self-declared polling period in seconds
	CheckInterval int64 `json:"checkInterval"`

	Status  string         `json:"status"`
	Errors  *ErrorInfo     `json:"errors,omitempty"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

// Fields are the caller-supplied inputs to Write; everything else is
// defaulted by the store.
type Fields struct {
	CheckInterval int64          `json:"checkInterval"`
	Status        string         `json:"status"`
	Metrics       map[string]any `json:"metrics,omitempty"`
	Errors        *ErrorInfo     `json:"errors,omitempty"`
}

// Store reads and writes per-service heartbeat files under
// <baseDir>/heartbeats. One JSON file per service, replaced atomically so
// concurrent readers never observe a torn report.
type Store struct {
	dir string
}

// NewStore creates the heartbeat directory if needed.
func NewStore(baseDir string) (*Store, error) {
	dir := filepath.Join(baseDir, "heartbeats")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewStorage(err)
	}
	return &Store{dir: dir}, nil
}

// validService rejects names that would escape the heartbeat directory.
func validService(service string) error {
	if service == "" {
		return errors.NewMissingField("service")
	}
	if strings.ContainsAny(service, "/\\") || service == "." || service == ".." {
		return errors.NewValidation(fmt.Sprintf("invalid service name: %q", service))
	}
	return nil
}

func (s *Store) path(service string) string {
	return filepath.Join(s.dir, service+".json")
}

// Write records a service's self-report, merging the caller's fields over
// defaults: pid is the current process, startedAt carries over from the
// existing report (first write stamps it), lastCheck is now. The file is
// written to a temp path and renamed into place.
func (s *Store) Write(service string, f Fields) (*Report, error) {
	if err := validService(service); err != nil {
		return nil, err
	}
	if f.CheckInterval <= 0 {
		return nil, errors.NewMissingField("checkInterval")
	}

	now := time.Now().Unix()
	report := &Report{
		Service:       service,
		PID:           os.Getpid(),
		StartedAt:     now,
		LastCheck:     now,
		CheckInterval: f.CheckInterval,
		Status:        f.Status,
		Errors:        f.Errors,
		Metrics:       f.Metrics,
	}
	if report.Status == "" {
		report.Status = StatusOK
	}

	// A previous report fixes startedAt; a corrupt one reads as absent.
	if prev, err := s.Read(service); err == nil && prev.StartedAt > 0 {
		report.StartedAt = prev.StartedAt
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := atomicWrite(s.path(service), data); err != nil {
		return nil, errors.NewStorage(err)
	}

	return report, nil
}

// Read returns the latest report for a service. A missing file yields a
// NOT_FOUND error ("no report yet" is an expected steady state); an
// unparseable file yields CORRUPT_STATE so callers can log and rebuild.
func (s *Store) Read(service string) (*Report, error) {
	if err := validService(service); err != nil {
		return nil, err
	}

	path := s.path(service)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("heartbeat", service)
		}
		return nil, errors.NewStorage(err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.NewCorruptState(path, err)
	}
	if report.Service == "" {
		report.Service = service
	}

	return &report, nil
}

// ReadAll enumerates every known service's latest report. Corrupt files
// are skipped and their service names returned separately so callers can
// log a warning without changing control flow.
func (s *Store) ReadAll() ([]*Report, []string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, errors.NewStorage(err)
	}

	var reports []*Report
	var corrupt []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		service := strings.TrimSuffix(name, ".json")

		report, err := s.Read(service)
		if err != nil {
			if errors.Is(err, errors.ErrCorruptState) {
				corrupt = append(corrupt, service)
				continue
			}
			if errors.Is(err, errors.ErrNotFound) {
				// Deleted between ReadDir and Read
				continue
			}
			return nil, nil, err
		}
		reports = append(reports, report)
	}

	return reports, corrupt, nil
}

// atomicWrite replaces path with data via temp file + rename so a reader
// never observes a partial write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
