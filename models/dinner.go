package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DinnerRequest statuses
const (
	DinnerStatusPending   = "pending"
	DinnerStatusCompleted = "completed"
	DinnerStatusCancelled = "cancelled"
)

// Recipe selection modes
const (
	RecipeTypeRandom   = "random"
	RecipeTypeWishlist = "wishlist"
	RecipeTypeSwipe    = "swipe"
)

// Member responses
const (
	ResponseAccepted = "accepted"
	ResponseDeclined = "declined"
)

// DinnerRequest is a proposal to make a group meal decision. At most one
// pending request exists per group; creating a new one deletes prior pending
// rows first.
type DinnerRequest struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID     uuid.UUID `gorm:"type:uuid;index" json:"group_id"`
	Group       Group     `gorm:"foreignKey:GroupID" json:"-"`
	RequestedBy uuid.UUID `gorm:"type:uuid" json:"requested_by"`
	Requester   User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	Date        time.Time `gorm:"type:date" json:"date"`
	Time        string    `gorm:"size:5" json:"time"` // HH:MM
	RecipeType  string    `gorm:"not null;size:20" json:"recipe_type"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `gorm:"default:pending;size:20" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d *DinnerRequest) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DinnerResponse is one member's accept/decline. Unique per (request, user);
// repeated responses overwrite in place.
type DinnerResponse struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID   uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_dinner_response_once" json:"request_id"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_dinner_response_once" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Response    string    `gorm:"not null;size:10" json:"response"` // accepted, declined
	RespondedAt time.Time `json:"responded_at"`
}

func (d *DinnerResponse) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Request structs
type CreateDinnerRequest struct {
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
	Time       string `json:"time" binding:"required"` // HH:MM
	RecipeType string `json:"recipe_type" binding:"required,oneof=random wishlist swipe"`
	Deadline   string `json:"deadline"` // RFC3339, defaults to date+time
}

type RespondRequest struct {
	Response string `json:"response" binding:"required,oneof=accepted declined"`
}

// Response structs
type PendingDinnerRequest struct {
	ID            uuid.UUID `json:"id"`
	GroupID       uuid.UUID `json:"group_id"`
	GroupName     string    `json:"group_name"`
	RequestedBy   uuid.UUID `json:"requested_by"`
	RequesterName string    `json:"requester_name"`
	Date          time.Time `json:"date"`
	Time          string    `json:"time"`
	RecipeType    string    `json:"recipe_type"`
	Deadline      time.Time `json:"deadline"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReadinessReport says whether enough members have responded to proceed to
// voting. Advisory only — nothing gates vote opening on it.
type ReadinessReport struct {
	ActiveMembers int  `json:"active_members"`
	Responses     int  `json:"responses"`
	Accepted      int  `json:"accepted"`
	Declined      int  `json:"declined"`
	Ready         bool `json:"ready"`
}
