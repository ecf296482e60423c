package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealRequest (vote session) statuses. Active is the only non-terminal state;
// there is no path back to active.
const (
	MealStatusActive    = "active"
	MealStatusCompleted = "completed"
	MealStatusCancelled = "cancelled"
)

// Votes
const (
	VoteYes = "yes"
	VoteNo  = "no"
)

// MealRequest is an open round of voting over a bounded candidate set of
// meals. At most one active request per group, enforced by a partial unique
// index at the store (see database.Migrate).
type MealRequest struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID      uuid.UUID `gorm:"type:uuid;index" json:"group_id"`
	Group        Group     `gorm:"foreignKey:GroupID" json:"-"`
	RequestedBy  uuid.UUID `gorm:"type:uuid" json:"requested_by"`
	Status       string    `gorm:"default:active;size:20" json:"status"`
	TotalOptions int       `json:"total_options"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (m *MealRequest) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MealPayload is the catalog record for one meal, stored opaquely alongside
// each option so results survive catalog unavailability.
type MealPayload struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ImageURL         string `json:"image_url,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
	Description      string `json:"description,omitempty"`
}

// MealOption is one candidate meal within a vote session. Order indices run
// 1..N and are unique within the request.
type MealOption struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID      uuid.UUID   `gorm:"type:uuid;index;uniqueIndex:idx_option_order" json:"request_id"`
	ExternalMealID string      `gorm:"size:64" json:"external_meal_id"`
	Payload        MealPayload `gorm:"serializer:json" json:"payload"`
	OrderIndex     int         `gorm:"uniqueIndex:idx_option_order" json:"order_index"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (o *MealOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// MealVote is one member's yes/no on one option. Unique per
// (request, option, user); a repeated vote overwrites, never duplicates.
type MealVote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_vote_once" json:"request_id"`
	OptionID  uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_vote_once" json:"option_id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_vote_once" json:"user_id"`
	Vote      string    `gorm:"not null;size:3" json:"vote"` // yes, no
	VotedAt   time.Time `json:"voted_at"`
}

func (v *MealVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// Request structs
type OpenVoteRequest struct {
	OptionCount int `json:"option_count"`
}

type ReplaceVoteRequest struct {
	OptionCount       int    `json:"option_count"`
	ExistingRequestID string `json:"existing_request_id" binding:"required"`
}

type CastVoteRequest struct {
	OptionID string `json:"option_id" binding:"required"`
	Vote     string `json:"vote" binding:"required,oneof=yes no"`
}

// Response structs

// ActiveRequestSummary is attached to "already exists" conflicts so the caller
// can offer view vs. replace.
type ActiveRequestSummary struct {
	ID           uuid.UUID `json:"id"`
	GroupID      uuid.UUID `json:"group_id"`
	RequestedBy  uuid.UUID `json:"requested_by"`
	TotalOptions int       `json:"total_options"`
	CreatedAt    time.Time `json:"created_at"`
}

// OptionTally counts votes for one option; percentages are of votes cast.
type OptionTally struct {
	OptionID   uuid.UUID `json:"option_id"`
	OrderIndex int       `json:"order_index"`
	MealName   string    `json:"meal_name"`
	Yes        int       `json:"yes"`
	No         int       `json:"no"`
	Total      int       `json:"total"`
	YesPercent float64   `json:"yes_percent"`
	NoPercent  float64   `json:"no_percent"`
}

type TallySummary struct {
	RequestID  uuid.UUID     `json:"request_id"`
	TotalVotes int           `json:"total_votes"`
	Options    []OptionTally `json:"options"`
}

// RankedOption is one entry of the top-ranked outcome; percentages here are of
// total active group membership, not of votes cast.
type RankedOption struct {
	Meal           MealPayload `json:"meal"`
	Yes            int         `json:"yes"`
	No             int         `json:"no"`
	Total          int         `json:"total"`
	YesPercent     float64     `json:"yes_percent"`
	NoPercent      float64     `json:"no_percent"`
	PendingPercent float64     `json:"pending_percent"` // members who have not voted on this option
}
