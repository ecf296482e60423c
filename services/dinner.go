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

// DinnerService coordinates dinner decision requests: a group-scoped proposal,
// individual accept/decline responses, and the readiness computation that
// gates (advisorily) progressing to voting.
type DinnerService struct {
	db    *gorm.DB
	votes *VoteService
}

func NewDinnerService(db *gorm.DB, votes *VoteService) *DinnerService {
	return &DinnerService{db: db, votes: votes}
}

// CreateRequestResult reports the primary request plus the outcome of the
// auto-spawned vote session. The secondary step failing never fails the
// primary creation.
type CreateRequestResult struct {
	Request     *models.DinnerRequest `json:"request"`
	AutoVote    *models.MealRequest   `json:"auto_vote,omitempty"`
	AutoVoteErr string                `json:"auto_vote_error,omitempty"`
}

// CreateRequest opens a dinner request for the group, deleting any prior
// pending request first so at most one pending row exists per group. As a
// convenience a vote session is spawned immediately so voting can start.
func (s *DinnerService) CreateRequest(ctx context.Context, groupID, requesterID uuid.UUID, in models.CreateDinnerRequest) (*CreateRequestResult, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	member, err := isActiveMember(ctx, s.db, groupID, requesterID)
	if err != nil {
		return nil, translateErr(ctx, err)
	}
	if !member {
		return nil, ErrNotMember
	}

	date, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return nil, errors.New("invalid date, expected YYYY-MM-DD")
	}

	// Default deadline is the meal's date and time
	deadline := date
	if clock, cerr := time.Parse("15:04", in.Time); cerr == nil {
		deadline = date.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
	}
	if in.Deadline != "" {
		if parsed, perr := time.Parse(time.RFC3339, in.Deadline); perr == nil {
			deadline = parsed
		}
	}

	// Supersede any prior pending request for this group.
	err = s.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, models.DinnerStatusPending).
		Delete(&models.DinnerRequest{}).Error
	if err != nil {
		return nil, translateErr(ctx, err)
	}

	request := models.DinnerRequest{
		GroupID:     groupID,
		RequestedBy: requesterID,
		Date:        date,
		Time:        in.Time,
		RecipeType:  in.RecipeType,
		Deadline:    deadline,
		Status:      models.DinnerStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, translateErr(ctx, err)
	}

	result := &CreateRequestResult{Request: &request}

	autoVote, err := s.votes.Open(ctx, groupID, requesterID, defaultVoteOptions)
	if err != nil {
		result.AutoVoteErr = err.Error()
	} else {
		result.AutoVote = autoVote
	}

	return result, nil
}

// RecordResponse upserts the member's accept/decline and returns the current
// readiness: responses ≥ floor(members/2) and at least two acceptances.
func (s *DinnerService) RecordResponse(ctx context.Context, requestID, userID uuid.UUID, response string) (models.ReadinessReport, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var report models.ReadinessReport

	var request models.DinnerRequest
	if err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return report, ErrRequestNotFound
		}
		return report, translateErr(ctx, err)
	}

	member, err := isActiveMember(ctx, s.db, request.GroupID, userID)
	if err != nil {
		return report, translateErr(ctx, err)
	}
	if !member {
		return report, ErrNotMember
	}

	row := models.DinnerResponse{
		RequestID:   requestID,
		UserID:      userID,
		Response:    response,
		RespondedAt: time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"response", "responded_at"}),
	}).Create(&row).Error
	if err != nil {
		return report, translateErr(ctx, err)
	}

	return s.Readiness(ctx, requestID, request.GroupID)
}

// Readiness computes the advisory ready-to-vote state for a request.
func (s *DinnerService) Readiness(ctx context.Context, requestID, groupID uuid.UUID) (models.ReadinessReport, error) {
	var report models.ReadinessReport

	members, err := activeMemberCount(ctx, s.db, groupID)
	if err != nil {
		return report, translateErr(ctx, err)
	}
	report.ActiveMembers = members

	var responses []models.DinnerResponse
	err = s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Find(&responses).Error
	if err != nil {
		return report, translateErr(ctx, err)
	}

	for _, r := range responses {
		if r.Response == models.ResponseAccepted {
			report.Accepted++
		} else {
			report.Declined++
		}
	}
	report.Responses = len(responses)
	report.Ready = ComputeReadiness(members, report.Responses, report.Accepted)

	return report, nil
}

// ComputeReadiness: ready iff responses ≥ floor(members/2) and accepted ≥ 2.
func ComputeReadiness(members, responses, accepted int) bool {
	return responses >= members/2 && accepted >= 2
}

// ListPendingForUser returns pending requests across all groups the user
// actively belongs to, enriched with group name and requester label.
func (s *DinnerService) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.PendingDinnerRequest, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var memberships []models.GroupMember
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&memberships).Error
	if err != nil {
		return nil, translateErr(ctx, err)
	}

	groupIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.GroupID)
	}
	if len(groupIDs) == 0 {
		return []models.PendingDinnerRequest{}, nil
	}

	var requests []models.DinnerRequest
	err = s.db.WithContext(ctx).
		Where("group_id IN ? AND status = ?", groupIDs, models.DinnerStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, translateErr(ctx, err)
	}

	groupNames := make(map[uuid.UUID]string)
	var groups []models.Group
	s.db.WithContext(ctx).Where("id IN ?", groupIDs).Find(&groups)
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	pending := make([]models.PendingDinnerRequest, 0, len(requests))
	for _, r := range requests {
		var requester models.User
		s.db.WithContext(ctx).First(&requester, "id = ?", r.RequestedBy)

		pending = append(pending, models.PendingDinnerRequest{
			ID:            r.ID,
			GroupID:       r.GroupID,
			GroupName:     groupNames[r.GroupID],
			RequestedBy:   r.RequestedBy,
			RequesterName: requester.Name,
			Date:          r.Date,
			Time:          r.Time,
			RecipeType:    r.RecipeType,
			Deadline:      r.Deadline,
			CreatedAt:     r.CreatedAt,
		})
	}

	return pending, nil
}

// Complete transitions the request pending→completed via a status-qualified
// update. The caller must be an active member of the request's group. Returns
// false (not an error) when another actor already moved it.
func (s *DinnerService) Complete(ctx context.Context, requestID, userID uuid.UUID) (bool, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var request models.DinnerRequest
	if err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrRequestNotFound
		}
		return false, translateErr(ctx, err)
	}

	member, err := isActiveMember(ctx, s.db, request.GroupID, userID)
	if err != nil {
		return false, translateErr(ctx, err)
	}
	if !member {
		return false, ErrNotMember
	}

	res := s.db.WithContext(ctx).Model(&models.DinnerRequest{}).
		Where("id = ? AND status = ?", requestID, models.DinnerStatusPending).
		Update("status", models.DinnerStatusCompleted)
	if res.Error != nil {
		return false, translateErr(ctx, res.Error)
	}
	return res.RowsAffected == 1, nil
}
