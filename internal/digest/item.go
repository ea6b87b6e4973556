// Package digest builds normalized, justified notification items from
// heterogeneous collector outputs and merges duplicates describing the
// same real-world event.
package digest

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/nudge/internal/errors"
)

// Priority orders digest items. Closed enum: any other value is a
// construction error.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Priorities lists all valid priority values.
var Priorities = []string{string(PriorityLow), string(PriorityNormal), string(PriorityHigh)}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// rank maps priorities to a comparable order (high > normal > low).
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	}
	return 0
}

// Fields are the caller-supplied inputs to New.
type Fields struct {
	// Collector is the producing component name (required)
	Collector string `json:"collector"`

	// Observation is the human-readable fact (required)
	Observation string `json:"observation"`

	// Reason is why this was surfaced (required)
	Reason string `json:"reason"`

	// Authority is why this is not spam (required)
	Authority string `json:"authority"`

	// Consequence is what happens if ignored (required)
	Consequence string `json:"consequence"`

	// SourceURL links back to the underlying event (optional, dedup fallback key)
	SourceURL string `json:"sourceUrl,omitempty"`

	// SourceType and Category classify the item (sourceType required)
	SourceType string `json:"sourceType"`
	Category   string `json:"category"`

	// Priority is the closed low/normal/high enum (required)
	Priority Priority `json:"priority"`

	// AgeSeconds is how long the underlying event has been outstanding
	AgeSeconds int64 `json:"ageSeconds,omitempty"`

	// Counterparty is the human on the other side, if any
	Counterparty string `json:"counterparty,omitempty"`

	// EntityID identifies the real-world thing reported on (dedup key)
	EntityID string `json:"entityId,omitempty"`

	// ObservedAt is the Unix timestamp of the underlying event (required)
	ObservedAt int64 `json:"observedAt"`
}

// Item is a single notification-worthy fact. Ephemeral: never persisted
// beyond the current digest cycle.
type Item struct {
	// ID is digest-<collector>-<ulid>, globally unique within a run
	ID string `json:"id"`

	Fields

	// CollectedAt is stamped at construction time
	CollectedAt int64 `json:"collectedAt"`
}

// requiredFields are checked in a fixed order so the error always names
// the first missing one.
var requiredFields = []struct {
	name    string
	present func(Fields) bool
}{
	{"collector", func(f Fields) bool { return f.Collector != "" }},
	{"observation", func(f Fields) bool { return f.Observation != "" }},
	{"reason", func(f Fields) bool { return f.Reason != "" }},
	{"authority", func(f Fields) bool { return f.Authority != "" }},
	{"consequence", func(f Fields) bool { return f.Consequence != "" }},
	{"sourceType", func(f Fields) bool { return f.SourceType != "" }},
	{"category", func(f Fields) bool { return f.Category != "" }},
	{"priority", func(f Fields) bool { return f.Priority != "" }},
	{"observedAt", func(f Fields) bool { return f.ObservedAt > 0 }},
}

// New validates fields and constructs an Item. Pure apart from the id
// suffix and the CollectedAt stamp; no I/O.
func New(f Fields) (*Item, error) {
	for _, rf := range requiredFields {
		if !rf.present(f) {
			return nil, errors.NewMissingField(rf.name)
		}
	}
	if !f.Priority.Valid() {
		return nil, errors.NewInvalidValue("priority", string(f.Priority), Priorities)
	}

	suffix, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &Item{
		ID:          fmt.Sprintf("digest-%s-%s", f.Collector, suffix),
		Fields:      f,
		CollectedAt: time.Now().Unix(),
	}, nil
}

// PatternInsight is a sibling ephemeral type for trend observations.
// It lives in its own id namespace and is never deduplicated against items.
type PatternInsight struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Observation  string         `json:"observation"`
	Evidence     map[string]any `json:"evidence,omitempty"`
	Significance string         `json:"significance,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Authority    string         `json:"authority,omitempty"`
	Consequence  string         `json:"consequence,omitempty"`
}

// NewPatternInsight constructs a PatternInsight with a pattern- prefixed id.
func NewPatternInsight(insightType, observation string, evidence map[string]any) (*PatternInsight, error) {
	if insightType == "" {
		return nil, errors.NewMissingField("type")
	}
	if observation == "" {
		return nil, errors.NewMissingField("observation")
	}

	suffix, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &PatternInsight{
		ID:          fmt.Sprintf("pattern-%s", suffix),
		Type:        insightType,
		Observation: observation,
		Evidence:    evidence,
	}, nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
