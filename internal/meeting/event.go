// Package meeting caches upcoming calendar events and gates per-event
// reminder alerts.
package meeting

import (
	"fmt"
	"sort"
	"time"

	"github.com/hpungsan/nudge/internal/errors"
)

// EventTime is a calendar timestamp: dateTime for timed events, date for
// all-day events.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Time parses the event time. All-day dates resolve to local midnight.
func (et EventTime) Time() (time.Time, error) {
	if et.DateTime != "" {
		return time.Parse(time.RFC3339, et.DateTime)
	}
	if et.Date != "" {
		return time.ParseInLocation("2006-01-02", et.Date, time.Local)
	}
	return time.Time{}, errors.NewValidation("event time has neither dateTime nor date")
}

// Event is a raw calendar event as fetched by the calendar collaborator.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
}

// Upcoming filters events whose start time lies in (now, now+ahead],
// sorted ascending by start. Events without a parseable start are skipped.
func Upcoming(events []Event, now time.Time, ahead time.Duration) []Event {
	type timed struct {
		event Event
		start time.Time
	}

	var matched []timed
	cutoff := now.Add(ahead)
	for _, e := range events {
		start, err := e.Start.Time()
		if err != nil {
			continue
		}
		if start.After(now) && !start.After(cutoff) {
			matched = append(matched, timed{e, start})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].start.Before(matched[j].start)
	})

	result := make([]Event, len(matched))
	for i, m := range matched {
		result[i] = m.event
	}
	return result
}

// Group is a cluster of near-simultaneous meetings surfaced together.
type Group struct {
	StartTime time.Time `json:"startTime"`
	Meetings  []Event   `json:"meetings"`
}

// GroupOverlapping sorts events by start time and greedily bins each event
// into the current group while its start is within window of the group's
// FIRST event. Anchoring to the first event rather than the previous one
// prevents threshold creep across a long near-simultaneous run.
// Events without a parseable start are skipped.
func GroupOverlapping(events []Event, window time.Duration) []Group {
	type timed struct {
		event Event
		start time.Time
	}

	var all []timed
	for _, e := range events {
		start, err := e.Start.Time()
		if err != nil {
			continue
		}
		all = append(all, timed{e, start})
	}
	if len(all) == 0 {
		return nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].start.Before(all[j].start)
	})

	var groups []Group
	current := Group{StartTime: all[0].start, Meetings: []Event{all[0].event}}
	for _, m := range all[1:] {
		if m.start.Sub(current.StartTime) <= window {
			current.Meetings = append(current.Meetings, m.event)
			continue
		}
		groups = append(groups, current)
		current = Group{StartTime: m.start, Meetings: []Event{m.event}}
	}
	groups = append(groups, current)

	return groups
}

// MinutesUntil returns whole minutes from now until the event start,
// for reminder phrasing.
func MinutesUntil(e Event, now time.Time) (int, error) {
	start, err := e.Start.Time()
	if err != nil {
		return 0, err
	}
	d := start.Sub(now)
	if d < 0 {
		return 0, fmt.Errorf("event %s already started", e.ID)
	}
	return int(d / time.Minute), nil
}
