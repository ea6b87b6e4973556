package meeting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/nudge/internal/errors"
)

// Alert levels for meeting reminders.
const (
	AlertTenMinute  = "10min"
	AlertFiveMinute = "5min"
)

// Snapshot is a whole-list cache of fetched events with a single
// freshness timestamp.
type Snapshot struct {
	Timestamp int64   `json:"timestamp"`
	Events    []Event `json:"events"`
}

// Valid reports whether the snapshot is fresh enough to use instead of
// re-fetching from the calendar collaborator.
func (s *Snapshot) Valid(now time.Time, maxAge time.Duration) bool {
	if s == nil || s.Timestamp <= 0 {
		return false
	}
	return now.Sub(time.Unix(s.Timestamp, 0)) < maxAge
}

// alertState maps event id -> alert level -> Unix timestamp sent.
type alertState map[string]map[string]int64

// Store persists the meeting cache snapshot and the per-(event, level)
// alert gate under <baseDir>/meetings. Files are replaced atomically so a
// restarted poller resumes from consistent state.
type Store struct {
	dir string
}

// NewStore creates the meetings directory if needed.
func NewStore(baseDir string) (*Store, error) {
	dir := filepath.Join(baseDir, "meetings")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewStorage(err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) cachePath() string {
	return filepath.Join(s.dir, "cache.json")
}

func (s *Store) alertsPath() string {
	return filepath.Join(s.dir, "alerts.json")
}

// SaveCache writes a whole-list snapshot stamped with the current time.
func (s *Store) SaveCache(events []Event) (*Snapshot, error) {
	snapshot := &Snapshot{
		Timestamp: time.Now().Unix(),
		Events:    events,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := atomicWrite(s.cachePath(), data); err != nil {
		return nil, errors.NewStorage(err)
	}

	return snapshot, nil
}

// LoadCache reads the snapshot. Missing file -> NOT_FOUND, unparseable
// file -> CORRUPT_STATE; callers treat both as a cache miss (re-fetch)
// but can log the corrupt case.
func (s *Store) LoadCache() (*Snapshot, error) {
	data, err := os.ReadFile(s.cachePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("meeting cache", s.cachePath())
		}
		return nil, errors.NewStorage(err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.NewCorruptState(s.cachePath(), err)
	}

	return &snapshot, nil
}

// loadAlerts reads the alert-state map. Absent or corrupt files read as
// empty state: the correct resilience policy is rebuilding, not crashing.
func (s *Store) loadAlerts() (alertState, error) {
	data, err := os.ReadFile(s.alertsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return alertState{}, nil
		}
		return nil, errors.NewStorage(err)
	}

	var state alertState
	if err := json.Unmarshal(data, &state); err != nil {
		return alertState{}, errors.NewCorruptState(s.alertsPath(), err)
	}
	if state == nil {
		state = alertState{}
	}
	return state, nil
}

func (s *Store) saveAlerts(state alertState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := atomicWrite(s.alertsPath(), data); err != nil {
		return errors.NewStorage(err)
	}
	return nil
}

// RecordAlert marks (eventID, level) as alerted. Idempotent: re-recording
// an already-sent pair keeps the original timestamp.
func (s *Store) RecordAlert(eventID, level string) error {
	if eventID == "" {
		return errors.NewMissingField("eventID")
	}
	if level == "" {
		return errors.NewMissingField("level")
	}

	state, err := s.loadAlerts()
	if err != nil && !errors.Is(err, errors.ErrCorruptState) {
		return err
	}

	levels, ok := state[eventID]
	if !ok {
		levels = map[string]int64{}
		state[eventID] = levels
	}
	if _, sent := levels[level]; sent {
		return nil
	}
	levels[level] = time.Now().Unix()

	return s.saveAlerts(state)
}

// HasAlerted reports whether an alert at this level was already sent for
// this event, so a restarted poller does not re-notify.
func (s *Store) HasAlerted(eventID, level string) (bool, error) {
	state, err := s.loadAlerts()
	if err != nil && !errors.Is(err, errors.ErrCorruptState) {
		return false, err
	}

	levels, ok := state[eventID]
	if !ok {
		return false, nil
	}
	_, sent := levels[level]
	return sent, nil
}

// CleanupAlertState drops alert entries for event ids no longer in the
// active set, but only once every recorded alert for that id is older than
// the retention window. This protects state for an event that just rotated
// out of the fetch window moments ago.
func (s *Store) CleanupAlertState(activeEventIDs []string, retention time.Duration) error {
	state, err := s.loadAlerts()
	if err != nil && !errors.Is(err, errors.ErrCorruptState) {
		return err
	}
	if len(state) == 0 {
		return nil
	}

	active := make(map[string]bool, len(activeEventIDs))
	for _, id := range activeEventIDs {
		active[id] = true
	}

	cutoff := time.Now().Add(-retention).Unix()
	changed := false
	for eventID, levels := range state {
		if active[eventID] {
			continue
		}
		allOld := true
		for _, sentAt := range levels {
			if sentAt > cutoff {
				allOld = false
				break
			}
		}
		if allOld {
			delete(state, eventID)
			changed = true
		}
	}

	if !changed {
		return nil
	}
	return s.saveAlerts(state)
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
