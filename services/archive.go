package services

import (
	"context"
	"errors"
	"mealmates-backend/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArchiveService persists the final ranked outcome and member-response record
// for a group exactly once per decision cycle, and purges transient working
// state at cycle end.
type ArchiveService struct {
	db *gorm.DB
}

func NewArchiveService(db *gorm.DB) *ArchiveService {
	return &ArchiveService{db: db}
}

// Archive upserts the group's snapshot: a prior archived row, if present, is
// overwritten rather than duplicated. Pure write; content is not validated
// beyond shape.
func (s *ArchiveService) Archive(ctx context.Context, groupID uuid.UUID, groupName string, topResults []models.RankedOption, memberResponses []models.MemberResponseSnapshot) (*models.TerminatedSession, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	session := models.TerminatedSession{
		GroupID:         groupID,
		GroupName:       groupName,
		TopResults:      topResults,
		MemberResponses: memberResponses,
		TerminatedAt:    time.Now(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"group_name", "top_results", "member_responses", "terminated_at"}),
	}).Create(&session).Error
	if err != nil {
		return nil, translateErr(ctx, err)
	}

	return &session, nil
}

// Fetch returns the archived snapshot, or nil (not an error) when absent.
func (s *ArchiveService) Fetch(ctx context.Context, groupID uuid.UUID) (*models.TerminatedSession, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var session models.TerminatedSession
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateErr(ctx, err)
	}
	return &session, nil
}

// Clear deletes the archived row; invoked by the conflict resolver at the
// start of a new cycle.
func (s *ArchiveService) Clear(ctx context.Context, groupID uuid.UUID) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Delete(&models.TerminatedSession{}).Error
	return translateErr(ctx, err)
}

// PurgeWorkingState deletes the group's transient decision-cycle rows with the
// same best-effort multi-step discipline as the conflict resolver, applied at
// cycle end. The archived snapshot is left in place.
func (s *ArchiveService) PurgeWorkingState(ctx context.Context, groupID uuid.UUID) CleanupResult {
	ctx, cancel := opContext(ctx)
	defer cancel()

	return purgeGroupWorkingState(ctx, s.db, groupID)
}

// MemberSnapshot builds the per-member response/vote roll-up for archival:
// each active member's dinner response plus their yes/no vote counts on the
// given vote session.
func (s *ArchiveService) MemberSnapshot(ctx context.Context, groupID, dinnerRequestID, mealRequestID uuid.UUID) ([]models.MemberResponseSnapshot, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var memberships []models.GroupMember
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Find(&memberships).Error
	if err != nil {
		return nil, translateErr(ctx, err)
	}

	responses := make(map[uuid.UUID]string)
	if dinnerRequestID != uuid.Nil {
		var rows []models.DinnerResponse
		s.db.WithContext(ctx).Where("request_id = ?", dinnerRequestID).Find(&rows)
		for _, r := range rows {
			responses[r.UserID] = r.Response
		}
	}

	yesVotes := make(map[uuid.UUID]int)
	noVotes := make(map[uuid.UUID]int)
	if mealRequestID != uuid.Nil {
		var votes []models.MealVote
		s.db.WithContext(ctx).Where("request_id = ?", mealRequestID).Find(&votes)
		for _, v := range votes {
			if v.Vote == models.VoteYes {
				yesVotes[v.UserID]++
			} else {
				noVotes[v.UserID]++
			}
		}
	}

	snapshot := make([]models.MemberResponseSnapshot, 0, len(memberships))
	for _, m := range memberships {
		var user models.User
		s.db.WithContext(ctx).First(&user, "id = ?", m.UserID)

		snapshot = append(snapshot, models.MemberResponseSnapshot{
			UserID:   m.UserID,
			Name:     user.Name,
			Response: responses[m.UserID],
			YesVotes: yesVotes[m.UserID],
			NoVotes:  noVotes[m.UserID],
		})
	}

	return snapshot, nil
}
