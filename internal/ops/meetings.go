package ops

import (
	"time"

	"github.com/hpungsan/nudge/internal/config"
	"github.com/hpungsan/nudge/internal/errors"
	"github.com/hpungsan/nudge/internal/meeting"
)

// MeetingsInput contains parameters for the Meetings operation.
type MeetingsInput struct {
	// MinutesAhead is the lookahead window for upcoming meetings.
	MinutesAhead int
}

// MeetingsOutput contains the result of the Meetings operation.
type MeetingsOutput struct {
	// CacheValid is false when the snapshot is missing, stale, or corrupt;
	// the caller should re-fetch from the calendar collaborator and
	// SaveCache before retrying.
	CacheValid bool `json:"cache_valid"`

	// CacheCorrupt distinguishes an unreadable snapshot from a plain miss.
	CacheCorrupt bool `json:"cache_corrupt,omitempty"`

	Upcoming []meeting.Event `json:"upcoming,omitempty"`
	Groups   []meeting.Group `json:"groups,omitempty"`
}

// Meetings reads the cached event list and derives the upcoming set and
// overlap groups. A cache miss is a valid outcome, not an error.
func Meetings(store *meeting.Store, cfg *config.Config, input MeetingsInput) (*MeetingsOutput, error) {
	if input.MinutesAhead <= 0 {
		return nil, errors.NewValidation("minutes_ahead must be positive")
	}

	snapshot, err := store.LoadCache()
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &MeetingsOutput{CacheValid: false}, nil
		}
		if errors.Is(err, errors.ErrCorruptState) {
			return &MeetingsOutput{CacheValid: false, CacheCorrupt: true}, nil
		}
		return nil, err
	}

	now := time.Now()
	if !snapshot.Valid(now, cfg.CacheMaxAge()) {
		return &MeetingsOutput{CacheValid: false}, nil
	}

	upcoming := meeting.Upcoming(snapshot.Events, now, time.Duration(input.MinutesAhead)*time.Minute)
	return &MeetingsOutput{
		CacheValid: true,
		Upcoming:   upcoming,
		Groups:     meeting.GroupOverlapping(upcoming, cfg.OverlapWindow()),
	}, nil
}

// RefreshMeetingsInput contains parameters for the RefreshMeetings operation.
type RefreshMeetingsInput struct {
	// Events is the freshly fetched event list from the calendar collaborator.
	Events []meeting.Event
}

// RefreshMeetingsOutput contains the result of the RefreshMeetings operation.
type RefreshMeetingsOutput struct {
	Timestamp int64 `json:"timestamp"`
	Count     int   `json:"count"`
}

// RefreshMeetings replaces the cache snapshot with a fresh fetch and
// garbage-collects alert state for events that left the active set.
func RefreshMeetings(store *meeting.Store, cfg *config.Config, input RefreshMeetingsInput) (*RefreshMeetingsOutput, error) {
	snapshot, err := store.SaveCache(input.Events)
	if err != nil {
		return nil, err
	}

	activeIDs := make([]string, 0, len(input.Events))
	for _, e := range input.Events {
		activeIDs = append(activeIDs, e.ID)
	}
	if err := store.CleanupAlertState(activeIDs, cfg.AlertRetention()); err != nil {
		return nil, err
	}

	return &RefreshMeetingsOutput{Timestamp: snapshot.Timestamp, Count: len(input.Events)}, nil
}
