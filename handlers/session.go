package handlers

import (
	"errors"
	"fmt"
	"mealmates-backend/database"
	"mealmates-backend/models"
	"mealmates-backend/services"
	"mealmates-backend/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// POST /api/groups/:id/terminate
//
// Concludes the group's decision cycle: snapshot the ranked outcome and the
// member-response roll-up, close the vote session, archive the snapshot, then
// purge working state. Cleanup is best-effort; the response reports per-step
// results.
func TerminateSession(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	ctx := c.Request.Context()

	active, err := voteService.ActiveRequest(ctx, groupID)
	if err != nil {
		serviceError(c, err)
		return
	}
	if active == nil {
		utils.NotFound(c, "No active vote session to terminate")
		return
	}

	// Snapshot before closing — Close purges votes and options.
	ranked, err := voteService.TopRanked(ctx, active.ID, userID, 3)
	if err != nil {
		serviceError(c, err)
		return
	}

	var dinnerRequestID uuid.UUID
	var dinnerRequest models.DinnerRequest
	if err := database.DB.Where("group_id = ? AND status = ?", groupID, models.DinnerStatusPending).
		First(&dinnerRequest).Error; err == nil {
		dinnerRequestID = dinnerRequest.ID
	}

	snapshot, err := archiveService.MemberSnapshot(ctx, groupID, dinnerRequestID, active.ID)
	if err != nil {
		serviceError(c, err)
		return
	}

	if err := voteService.Close(ctx, active.ID, userID); err != nil && !errors.Is(err, services.ErrAlreadyTerminated) {
		serviceError(c, err)
		return
	}

	if dinnerRequestID != uuid.Nil {
		dinnerService.Complete(ctx, dinnerRequestID, userID)
	}

	var group models.Group
	database.DB.First(&group, groupID)

	session, err := archiveService.Archive(ctx, groupID, group.Name, ranked, snapshot)
	if err != nil {
		serviceError(c, err)
		return
	}

	cleanup := archiveService.PurgeWorkingState(ctx, groupID)

	var user models.User
	database.DB.First(&user, userID)
	database.DB.Create(&models.Activity{
		GroupID:     groupID,
		UserID:      userID,
		Type:        "session_terminated",
		ReferenceID: session.ID,
		Description: fmt.Sprintf("%s closed the dinner vote in %s", user.Name, group.Name),
	})

	go services.GetNotificationService().NotifySessionTerminated(group, *session)

	utils.SuccessResponse(c, http.StatusOK, "Session terminated", gin.H{
		"session": session,
		"cleanup": cleanup,
	})
}

// GET /api/groups/:id/last-session
func GetLastSession(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	session, err := archiveService.Fetch(c.Request.Context(), groupID)
	if err != nil {
		serviceError(c, err)
		return
	}
	if session == nil {
		utils.SuccessResponse(c, http.StatusOK, "No archived session", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", session)
}

// GET /api/groups/:id/conflicts
func DetectConflicts(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	report, err := conflictResolver.DetectConflicts(c.Request.Context(), groupID)
	if err != nil {
		serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", report)
}

// POST /api/groups/:id/conflicts/resolve
func ResolveConflicts(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	if !isMember(groupID, userID) {
		utils.Forbidden(c, "You are not a member of this group")
		return
	}

	result := conflictResolver.Resolve(c.Request.Context(), groupID)

	utils.SuccessResponse(c, http.StatusOK, "Conflicts resolved", result)
}

// POST /api/preload/warm
//
// Pre-fetches a meal batch for each of the caller's groups that has no active
// vote session, so a later open doesn't wait on the catalog.
func WarmPreload(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var memberships []models.GroupMember
	database.DB.Where("user_id = ? AND is_active = ?", userID, true).Find(&memberships)

	var groupIDs []uuid.UUID
	for _, m := range memberships {
		active, err := voteService.ActiveRequest(c.Request.Context(), m.GroupID)
		if err != nil || active != nil {
			continue
		}
		groupIDs = append(groupIDs, m.GroupID)
	}

	preloadCache.Warm(c.Request.Context(), groupIDs)

	utils.SuccessResponse(c, http.StatusOK, "Preload complete", gin.H{"groups_warmed": len(groupIDs)})
}
