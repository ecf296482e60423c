package services

import (
	"context"
	"mealmates-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConflictReport lists leftover state from a prior, improperly closed decision
// cycle.
type ConflictReport struct {
	ActiveMealRequests    int64 `json:"active_meal_requests"`
	PendingDinnerRequests int64 `json:"pending_dinner_requests"`
	TerminatedSession     bool  `json:"terminated_session"`
}

func (r ConflictReport) Any() bool {
	return r.ActiveMealRequests > 0 || r.PendingDinnerRequests > 0 || r.TerminatedSession
}

// ConflictResolver clears leftover state for a group before a new decision
// cycle starts.
type ConflictResolver struct {
	db *gorm.DB
}

func NewConflictResolver(db *gorm.DB) *ConflictResolver {
	return &ConflictResolver{db: db}
}

// DetectConflicts reports what leftover state exists, without side effects.
func (r *ConflictResolver) DetectConflicts(ctx context.Context, groupID uuid.UUID) (ConflictReport, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var report ConflictReport

	err := r.db.WithContext(ctx).Model(&models.MealRequest{}).
		Where("group_id = ? AND status = ?", groupID, models.MealStatusActive).
		Count(&report.ActiveMealRequests).Error
	if err != nil {
		return report, translateErr(ctx, err)
	}

	err = r.db.WithContext(ctx).Model(&models.DinnerRequest{}).
		Where("group_id = ? AND status = ?", groupID, models.DinnerStatusPending).
		Count(&report.PendingDinnerRequests).Error
	if err != nil {
		return report, translateErr(ctx, err)
	}

	var sessions int64
	err = r.db.WithContext(ctx).Model(&models.TerminatedSession{}).
		Where("group_id = ?", groupID).
		Count(&sessions).Error
	if err != nil {
		return report, translateErr(ctx, err)
	}
	report.TerminatedSession = sessions > 0

	return report, nil
}

// Resolve deletes the group's working state and archived snapshot, children
// before parents so foreign keys hold in stores without cascades. Each step is
// independently fault-tolerant; re-running on a clean group is a no-op.
func (r *ConflictResolver) Resolve(ctx context.Context, groupID uuid.UUID) CleanupResult {
	ctx, cancel := opContext(ctx)
	defer cancel()

	result := purgeGroupWorkingState(ctx, r.db, groupID)

	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Delete(&models.TerminatedSession{}).Error
	result.record("delete_terminated_session", translateErr(ctx, err))

	return result
}

// purgeGroupWorkingState runs the ordered best-effort deletion of all transient
// decision-cycle rows: votes → options → responses → meal requests → dinner
// requests. Shared by the resolver (cycle start) and the archiver (cycle end).
func purgeGroupWorkingState(ctx context.Context, db *gorm.DB, groupID uuid.UUID) CleanupResult {
	var result CleanupResult

	mealRequestIDs := db.Model(&models.MealRequest{}).
		Select("id").Where("group_id = ?", groupID)
	dinnerRequestIDs := db.Model(&models.DinnerRequest{}).
		Select("id").Where("group_id = ?", groupID)

	err := db.WithContext(ctx).
		Where("request_id IN (?)", mealRequestIDs).
		Delete(&models.MealVote{}).Error
	result.record("delete_meal_votes", translateErr(ctx, err))

	err = db.WithContext(ctx).
		Where("request_id IN (?)", mealRequestIDs).
		Delete(&models.MealOption{}).Error
	result.record("delete_meal_options", translateErr(ctx, err))

	err = db.WithContext(ctx).
		Where("request_id IN (?)", dinnerRequestIDs).
		Delete(&models.DinnerResponse{}).Error
	result.record("delete_dinner_responses", translateErr(ctx, err))

	err = db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Delete(&models.MealRequest{}).Error
	result.record("delete_meal_requests", translateErr(ctx, err))

	err = db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Delete(&models.DinnerRequest{}).Error
	result.record("delete_dinner_requests", translateErr(ctx, err))

	return result
}
