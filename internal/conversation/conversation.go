package conversation

import (
	"github.com/hpungsan/nudge/internal/errors"
)

// Type identifies the messaging surface a conversation lives on.
type Type string

const (
	TypeEmail        Type = "email"
	TypeSlackDM      Type = "slack-dm"
	TypeSlackMention Type = "slack-mention"
)

// Types lists all valid conversation types.
var Types = []string{string(TypeEmail), string(TypeSlackDM), string(TypeSlackMention)}

// Valid reports whether t is a known conversation type.
func (t Type) Valid() bool {
	switch t {
	case TypeEmail, TypeSlackDM, TypeSlackMention:
		return true
	}
	return false
}

// Party identifies who sent the most recent message.
type Party string

const (
	PartyMe   Party = "me"
	PartyThem Party = "them"
)

// Parties lists all valid sender values.
var Parties = []string{string(PartyMe), string(PartyThem)}

// Valid reports whether p is a known party.
func (p Party) Valid() bool {
	return p == PartyMe || p == PartyThem
}

// Waiting identifies whose turn it is to respond.
type Waiting string

const (
	WaitingMyResponse    Waiting = "my-response"
	WaitingTheirResponse Waiting = "their-response"
)

// Waitings lists all valid waiting-for values.
var Waitings = []string{string(WaitingMyResponse), string(WaitingTheirResponse)}

// Valid reports whether w is a known waiting-for value.
func (w Waiting) Valid() bool {
	return w == WaitingMyResponse || w == WaitingTheirResponse
}

// Tier identifies a notification escalation tier. Each tier fires at most
// once per conversation; the ledger is the gate.
type Tier string

const (
	TierImmediate  Tier = "immediate"
	TierFourHour   Tier = "4h"
	TierDaily      Tier = "daily"
	TierEscalation Tier = "escalation"
)

// Tiers lists all valid escalation tiers.
var Tiers = []string{string(TierImmediate), string(TierFourHour), string(TierDaily), string(TierEscalation)}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierImmediate, TierFourHour, TierDaily, TierEscalation:
		return true
	}
	return false
}

// Conversation is a tracked thread of back-and-forth needing eventual
// resolution. Rows are never physically deleted; resolution is a one-way
// transition so the record stays queryable for audit and stats.
type Conversation struct {
	// ID is the stable identity (thread id or DM key)
	ID string `json:"id"`

	// Type is the messaging surface
	Type Type `json:"type"`

	// Subject is the email subject or message preview (nullable)
	Subject *string `json:"subject,omitempty"`

	// FromUser is the counterparty's account identifier
	FromUser string `json:"from_user"`

	// FromName is the counterparty's display name (nullable)
	FromName *string `json:"from_name,omitempty"`

	// ChannelID and ChannelName locate a mention's channel (mention-only, nullable)
	ChannelID   *string `json:"channel_id,omitempty"`
	ChannelName *string `json:"channel_name,omitempty"`

	// LastActivity is the Unix timestamp of the most recent message
	LastActivity int64 `json:"last_activity"`

	// LastSender is who sent the most recent message
	LastSender Party `json:"last_sender"`

	// WaitingFor reflects whose turn it is, derived from LastSender by the
	// owning poller
	WaitingFor Waiting `json:"waiting_for"`

	// FirstSeen is the Unix timestamp this conversation was first tracked
	FirstSeen int64 `json:"first_seen"`

	// NotifiedAt is the most recent notification timestamp (nullable)
	NotifiedAt *int64 `json:"notified_at,omitempty"`

	// ResolvedAt is set exactly once when a reply is detected (nullable;
	// null means active)
	ResolvedAt *int64 `json:"resolved_at,omitempty"`

	// Metadata is free-form collector-specific data (stored as JSON)
	Metadata map[string]any `json:"metadata,omitempty"`

	// UpdatedAt is the Unix timestamp of the last upsert
	UpdatedAt int64 `json:"updated_at"`
}

// Active reports whether the conversation is unresolved.
func (c *Conversation) Active() bool {
	return c.ResolvedAt == nil
}

// Observation is a raw conversation sighting produced by a poller,
// the input to the store's upsert.
type Observation struct {
	ID           string         `json:"id"`
	Type         Type           `json:"type"`
	FromUser     string         `json:"from_user"`
	FromName     *string        `json:"from_name,omitempty"`
	Subject      *string        `json:"subject,omitempty"`
	ChannelID    *string        `json:"channel_id,omitempty"`
	ChannelName  *string        `json:"channel_name,omitempty"`
	LastActivity int64          `json:"last_activity"`
	LastSender   Party          `json:"last_sender"`
	WaitingFor   Waiting        `json:"waiting_for"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Validate checks required fields and closed enums, returning a
// VALIDATION error for the first offender.
func (o Observation) Validate() error {
	if o.ID == "" {
		return errors.NewMissingField("id")
	}
	if o.Type == "" {
		return errors.NewMissingField("type")
	}
	if !o.Type.Valid() {
		return errors.NewInvalidValue("type", string(o.Type), Types)
	}
	if o.FromUser == "" {
		return errors.NewMissingField("from_user")
	}
	if o.LastActivity <= 0 {
		return errors.NewMissingField("last_activity")
	}
	if !o.LastSender.Valid() {
		return errors.NewInvalidValue("last_sender", string(o.LastSender), Parties)
	}
	if !o.WaitingFor.Valid() {
		return errors.NewInvalidValue("waiting_for", string(o.WaitingFor), Waitings)
	}
	return nil
}
