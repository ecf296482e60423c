package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mealmates-backend/models"
	"mealmates-backend/utils"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	minVoteOptions     = 3
	maxVoteOptions     = 20
	defaultVoteOptions = 12
)

// VoteService runs vote sessions: a bounded candidate set of meals per group,
// per-member yes/no votes, live tallies and ranked outcomes.
type VoteService struct {
	db      *gorm.DB
	source  RecipeSource
	preload *PreloadCache
}

func NewVoteService(db *gorm.DB, source RecipeSource, preload *PreloadCache) *VoteService {
	return &VoteService{db: db, source: source, preload: preload}
}

func clampOptionCount(n int) int {
	if n <= 0 {
		return defaultVoteOptions
	}
	if n < minVoteOptions {
		return minVoteOptions
	}
	if n > maxVoteOptions {
		return maxVoteOptions
	}
	return n
}

// ActiveRequest returns the group's active vote session, or nil when none.
func (s *VoteService) ActiveRequest(ctx context.Context, groupID uuid.UUID) (*models.MealRequest, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var req models.MealRequest
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, models.MealStatusActive).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateErr(ctx, err)
	}
	return &req, nil
}

// Open creates a vote session with optionCount candidate meals (clamped to
// [3,20]). Candidates come from the preload cache when present (consumed on
// use), else a fresh catalog fetch at a randomized offset, else the static
// fallback set. If the option bulk-insert fails the just-created request is
// deleted again — no orphan session survives.
func (s *VoteService) Open(ctx context.Context, groupID, requesterID uuid.UUID, optionCount int) (*models.MealRequest, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	member, err := isActiveMember(ctx, s.db, groupID, requesterID)
	if err != nil {
		return nil, translateErr(ctx, err)
	}
	if !member {
		return nil, ErrNotMember
	}

	if existing, err := s.ActiveRequest(ctx, groupID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &ActiveRequestExistsError{Existing: summarize(existing)}
	}

	count := clampOptionCount(optionCount)
	meals := s.candidateMeals(ctx, groupID, count)
	if len(meals) < count {
		count = len(meals)
	}

	request := models.MealRequest{
		GroupID:      groupID,
		RequestedBy:  requesterID,
		Status:       models.MealStatusActive,
		TotalOptions: count,
	}
	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		// The partial unique index is the one store-enforced invariant: a
		// concurrent Open for the same group loses here.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, aerr := s.ActiveRequest(ctx, groupID); aerr == nil && existing != nil {
				return nil, &ActiveRequestExistsError{Existing: summarize(existing)}
			}
		}
		return nil, translateErr(ctx, err)
	}

	options := make([]models.MealOption, 0, count)
	for i, meal := range meals[:count] {
		options = append(options, models.MealOption{
			RequestID:      request.ID,
			ExternalMealID: meal.ID,
			Payload:        meal,
			OrderIndex:     i + 1,
		})
	}

	if err := s.db.WithContext(ctx).Create(&options).Error; err != nil {
		// Compensating delete: the two inserts are not transactional.
		if derr := s.db.WithContext(ctx).Delete(&models.MealRequest{}, "id = ?", request.ID).Error; derr != nil {
			log.Printf("❌ Failed to roll back vote session %s: %v", request.ID, derr)
		}
		return nil, fmt.Errorf("failed to create meal options: %w", translateErr(ctx, err))
	}

	return &request, nil
}

// Replace cancels the existing active session (conditional on it still being
// active), purges its votes and options, then opens a fresh one.
func (s *VoteService) Replace(ctx context.Context, groupID, requesterID uuid.UUID, optionCount int, existingRequestID uuid.UUID) (*models.MealRequest, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	member, err := isActiveMember(ctx, s.db, groupID, requesterID)
	if err != nil {
		return nil, translateErr(ctx, err)
	}
	if !member {
		return nil, ErrNotMember
	}

	res := s.db.WithContext(ctx).Model(&models.MealRequest{}).
		Where("id = ? AND status = ?", existingRequestID, models.MealStatusActive).
		Updates(map[string]interface{}{"status": models.MealStatusCancelled, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, translateErr(ctx, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyTerminated
	}

	s.purgeRequestRows(ctx, existingRequestID)

	return s.Open(ctx, groupID, requesterID, optionCount)
}

// Vote upserts one member's yes/no on one option. A later vote by the same
// member on the same option overwrites the earlier one.
func (s *VoteService) Vote(ctx context.Context, requestID, optionID, userID uuid.UUID, vote string) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status != models.MealStatusActive {
		return ErrAlreadyTerminated
	}

	member, err := isActiveMember(ctx, s.db, request.GroupID, userID)
	if err != nil {
		return translateErr(ctx, err)
	}
	if !member {
		return ErrNotMember
	}

	var option models.MealOption
	err = s.db.WithContext(ctx).
		Where("id = ? AND request_id = ?", optionID, requestID).
		First(&option).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New("option does not belong to this vote session")
	}
	if err != nil {
		return translateErr(ctx, err)
	}

	row := models.MealVote{
		RequestID: requestID,
		OptionID:  optionID,
		UserID:    userID,
		Vote:      vote,
		VotedAt:   time.Now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}, {Name: "option_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vote", "voted_at"}),
	}).Create(&row).Error
	return translateErr(ctx, err)
}

// Tally computes per-option yes/no counts with percentages of votes cast.
// Only active members of the session's group may read it.
func (s *VoteService) Tally(ctx context.Context, requestID, userID uuid.UUID) (models.TallySummary, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	summary := models.TallySummary{RequestID: requestID}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return summary, err
	}
	member, err := isActiveMember(ctx, s.db, request.GroupID, userID)
	if err != nil {
		return summary, translateErr(ctx, err)
	}
	if !member {
		return summary, ErrNotMember
	}

	options, votes, err := s.loadVotingState(ctx, requestID)
	if err != nil {
		return summary, err
	}

	yes, no := countVotes(votes)

	for _, o := range options {
		t := models.OptionTally{
			OptionID:   o.ID,
			OrderIndex: o.OrderIndex,
			MealName:   o.Payload.Name,
			Yes:        yes[o.ID],
			No:         no[o.ID],
		}
		t.Total = t.Yes + t.No
		t.YesPercent = utils.Percent(t.Yes, t.Total)
		t.NoPercent = utils.Percent(t.No, t.Total)
		summary.Options = append(summary.Options, t)
		summary.TotalVotes += t.Total
	}

	return summary, nil
}

// TopRanked returns the k best options ordered by yes-count descending, ties
// broken by total-votes descending. Percentages here are against total active
// group membership, including a not-yet-voted share per option. Only active
// members of the session's group may read it.
func (s *VoteService) TopRanked(ctx context.Context, requestID, userID uuid.UUID, k int) ([]models.RankedOption, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	member, err := isActiveMember(ctx, s.db, request.GroupID, userID)
	if err != nil {
		return nil, translateErr(ctx, err)
	}
	if !member {
		return nil, ErrNotMember
	}

	members, err := activeMemberCount(ctx, s.db, request.GroupID)
	if err != nil {
		return nil, translateErr(ctx, err)
	}

	options, votes, err := s.loadVotingState(ctx, requestID)
	if err != nil {
		return nil, err
	}

	yes, no := countVotes(votes)

	ranked := make([]models.RankedOption, 0, len(options))
	for _, o := range options {
		r := models.RankedOption{
			Meal: o.Payload,
			Yes:  yes[o.ID],
			No:   no[o.ID],
		}
		r.Total = r.Yes + r.No
		r.YesPercent = utils.Percent(r.Yes, members)
		r.NoPercent = utils.Percent(r.No, members)
		r.PendingPercent = utils.Percent(members-r.Total, members)
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Yes != ranked[j].Yes {
			return ranked[i].Yes > ranked[j].Yes
		}
		return ranked[i].Total > ranked[j].Total
	})

	if k <= 0 {
		k = 3
	}
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// Close transitions the session active→completed via a status-qualified
// update, then purges its votes and options. Only the archived snapshot
// matters going forward. The caller must be an active member of the session's
// group; returns ErrAlreadyTerminated when another actor got there first.
func (s *VoteService) Close(ctx context.Context, requestID, userID uuid.UUID) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}
	member, err := isActiveMember(ctx, s.db, request.GroupID, userID)
	if err != nil {
		return translateErr(ctx, err)
	}
	if !member {
		return ErrNotMember
	}

	res := s.db.WithContext(ctx).Model(&models.MealRequest{}).
		Where("id = ? AND status = ?", requestID, models.MealStatusActive).
		Updates(map[string]interface{}{"status": models.MealStatusCompleted, "updated_at": time.Now()})
	if res.Error != nil {
		return translateErr(ctx, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyTerminated
	}

	s.purgeRequestRows(ctx, requestID)
	return nil
}

// purgeRequestRows deletes a terminated session's votes then options,
// best-effort. Votes first so foreign keys hold.
func (s *VoteService) purgeRequestRows(ctx context.Context, requestID uuid.UUID) {
	if err := s.db.WithContext(ctx).Where("request_id = ?", requestID).Delete(&models.MealVote{}).Error; err != nil {
		log.Printf("⚠️  Failed to purge votes for session %s: %v", requestID, err)
	}
	if err := s.db.WithContext(ctx).Where("request_id = ?", requestID).Delete(&models.MealOption{}).Error; err != nil {
		log.Printf("⚠️  Failed to purge options for session %s: %v", requestID, err)
	}
}

func (s *VoteService) candidateMeals(ctx context.Context, groupID uuid.UUID, count int) []models.MealPayload {
	if s.preload != nil {
		if meals := s.preload.Take(ctx, groupID); len(meals) >= minVoteOptions {
			if len(meals) > count {
				meals = meals[:count]
			}
			return meals
		}
	}

	meals, err := s.source.FetchBatch(ctx, VoteOffset(), count)
	if err != nil || len(meals) == 0 {
		meals = FallbackMeals(count)
	}
	return meals
}

func (s *VoteService) loadRequest(ctx context.Context, requestID uuid.UUID) (*models.MealRequest, error) {
	var request models.MealRequest
	if err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, translateErr(ctx, err)
	}
	return &request, nil
}

func (s *VoteService) loadVotingState(ctx context.Context, requestID uuid.UUID) ([]models.MealOption, []models.MealVote, error) {
	var options []models.MealOption
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("order_index ASC").
		Find(&options).Error
	if err != nil {
		return nil, nil, translateErr(ctx, err)
	}

	var votes []models.MealVote
	err = s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Find(&votes).Error
	if err != nil {
		return nil, nil, translateErr(ctx, err)
	}

	return options, votes, nil
}

func countVotes(votes []models.MealVote) (yes, no map[uuid.UUID]int) {
	yes = make(map[uuid.UUID]int)
	no = make(map[uuid.UUID]int)
	for _, v := range votes {
		if v.Vote == models.VoteYes {
			yes[v.OptionID]++
		} else {
			no[v.OptionID]++
		}
	}
	return yes, no
}

func summarize(req *models.MealRequest) models.ActiveRequestSummary {
	return models.ActiveRequestSummary{
		ID:           req.ID,
		GroupID:      req.GroupID,
		RequestedBy:  req.RequestedBy,
		TotalOptions: req.TotalOptions,
		CreatedAt:    req.CreatedAt,
	}
}
