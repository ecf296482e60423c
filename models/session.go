package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TerminatedSession is the single persisted snapshot of a group's most
// recently concluded decision. One row per group, overwritten on each new
// termination; read by clients after working state is purged.
type TerminatedSession struct {
	ID              uuid.UUID                `gorm:"type:uuid;primaryKey" json:"id"`
	GroupID         uuid.UUID                `gorm:"type:uuid;uniqueIndex" json:"group_id"`
	GroupName       string                   `gorm:"size:100" json:"group_name"`
	TopResults      []RankedOption           `gorm:"serializer:json" json:"top_results"`
	MemberResponses []MemberResponseSnapshot `gorm:"serializer:json" json:"member_responses"`
	TerminatedAt    time.Time                `json:"terminated_at"`
}

func (t *TerminatedSession) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// MemberResponseSnapshot is the per-member roll-up recorded at termination.
type MemberResponseSnapshot struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Response string    `json:"response,omitempty"` // accepted, declined, or empty if never responded
	YesVotes int       `json:"yes_votes"`
	NoVotes  int       `json:"no_votes"`
}
