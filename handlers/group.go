package handlers

import (
	"fmt"
	"mealmates-backend/database"
	"mealmates-backend/models"
	"mealmates-backend/services"
	"mealmates-backend/utils"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// POST /api/groups
func CreateGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	// The creator's first active group becomes their primary group
	var activeGroups int64
	database.DB.Model(&models.Group{}).
		Where("created_by = ? AND is_active = ?", userID, true).
		Count(&activeGroups)

	group := models.Group{
		Name:      req.Name,
		JoinCode:  utils.GenerateJoinCode(),
		CreatedBy: userID,
		IsActive:  true,
		IsPrimary: activeGroups == 0,
	}

	// Join codes are random; retry a few times on the off chance of a collision
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = database.DB.Create(&group).Error
		if err == nil {
			break
		}
		group.JoinCode = utils.GenerateJoinCode()
	}
	if err != nil {
		utils.InternalError(c, "Failed to create group")
		return
	}

	// Add creator as admin member
	member := models.GroupMember{
		GroupID:  group.ID,
		UserID:   userID,
		Role:     "admin",
		IsActive: true,
	}
	database.DB.Create(&member)

	// Log activity
	var creator models.User
	database.DB.First(&creator, userID)
	database.DB.Create(&models.Activity{
		GroupID:     group.ID,
		UserID:      userID,
		Type:        "group_created",
		ReferenceID: group.ID,
		Description: fmt.Sprintf("%s created group \"%s\"", creator.Name, group.Name),
	})

	response := buildGroupResponse(group.ID)
	utils.SuccessResponse(c, http.StatusCreated, "Group created", response)
}

// POST /api/groups/join
func JoinGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var req models.JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))

	var group models.Group
	if err := database.DB.Where("join_code = ? AND is_active = ?", code, true).First(&group).Error; err != nil {
		utils.NotFound(c, "No group found for that code")
		return
	}

	var existing models.GroupMember
	if err := database.DB.Where("group_id = ? AND user_id = ?", group.ID, userID).First(&existing).Error; err == nil {
		if existing.IsActive {
			utils.BadRequest(c, "You are already a member of this group")
			return
		}
		database.DB.Model(&existing).Update("is_active", true)
	} else {
		database.DB.Create(&models.GroupMember{
			GroupID:  group.ID,
			UserID:   userID,
			Role:     "member",
			IsActive: true,
		})
	}

	var user models.User
	database.DB.First(&user, userID)
	database.DB.Create(&models.Activity{
		GroupID:     group.ID,
		UserID:      userID,
		Type:        "member_joined",
		Description: fmt.Sprintf("%s joined %s", user.Name, group.Name),
	})

	utils.SuccessResponse(c, http.StatusOK, "Joined group", buildGroupResponse(group.ID))
}

// GET /api/groups
func GetGroups(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	var memberships []models.GroupMember
	database.DB.Where("user_id = ? AND is_active = ?", userID, true).Find(&memberships)

	var groupIDs []uuid.UUID
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.GroupID)
	}

	var groups []models.Group
	if len(groupIDs) > 0 {
		database.DB.Where("id IN ? AND is_active = ?", groupIDs, true).Order("created_at DESC").Find(&groups)
	}

	var responses []models.GroupResponse
	for _, g := range groups {
		responses = append(responses, buildGroupResponse(g.ID))
	}

	utils.SuccessResponse(c, http.StatusOK, "", responses)
}

// GET /api/groups/:id
func GetGroup(c *gin.Context) {
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

	utils.SuccessResponse(c, http.StatusOK, "", buildGroupResponse(groupID))
}

// DELETE /api/groups/:id/members/me — leave the group (hard delete)
func LeaveGroup(c *gin.Context) {
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

	database.DB.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})

	var user models.User
	database.DB.First(&user, userID)
	var group models.Group
	database.DB.First(&group, groupID)

	database.DB.Create(&models.Activity{
		GroupID:     groupID,
		UserID:      userID,
		Type:        "member_left",
		Description: fmt.Sprintf("%s left %s", user.Name, group.Name),
	})

	utils.SuccessResponse(c, http.StatusOK, "Left group", nil)
}

// DELETE /api/groups/:id — soft delete; only the creator/admin may delete.
// If the deleted group was primary, the creator's oldest remaining active
// group inherits primary status.
func DeleteGroup(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var group models.Group
	if err := database.DB.First(&group, groupID).Error; err != nil {
		utils.NotFound(c, "Group not found")
		return
	}

	var membership models.GroupMember
	database.DB.Where("group_id = ? AND user_id = ?", groupID, userID).First(&membership)
	if group.CreatedBy != userID && membership.Role != "admin" {
		utils.Forbidden(c, "Only admins can delete a group")
		return
	}

	database.DB.Model(&group).Updates(map[string]interface{}{
		"is_active":  false,
		"is_primary": false,
	})

	if group.IsPrimary {
		var oldest models.Group
		err := database.DB.
			Where("created_by = ? AND is_active = ?", group.CreatedBy, true).
			Order("created_at ASC").
			First(&oldest).Error
		if err == nil {
			database.DB.Model(&oldest).Update("is_primary", true)
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Group deleted", nil)
}

// POST /api/groups/:id/invite
func InviteToGroupHandler(c *gin.Context) {
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

	var req models.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	if req.Email == "" && req.Phone == "" {
		utils.BadRequest(c, "Email or phone required")
		return
	}

	go services.InviteToGroup(groupID, userID, req.Email, req.Phone)

	utils.SuccessResponse(c, http.StatusOK, "Invitation sent", nil)
}

// Helper: check active group membership
func isMember(groupID, userID uuid.UUID) bool {
	var count int64
	database.DB.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		Count(&count)
	return count > 0
}

// Helper: build full group response with members
func buildGroupResponse(groupID uuid.UUID) models.GroupResponse {
	var group models.Group
	database.DB.First(&group, groupID)

	var members []models.GroupMember
	database.DB.Where("group_id = ? AND is_active = ?", groupID, true).Find(&members)

	var memberResponses []models.GroupMemberResponse
	for _, m := range members {
		var user models.User
		database.DB.First(&user, m.UserID)
		memberResponses = append(memberResponses, models.GroupMemberResponse{
			UserID:    user.ID,
			Name:      user.Name,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
			Role:      m.Role,
			JoinedAt:  m.JoinedAt,
		})
	}

	return models.GroupResponse{
		ID:        group.ID,
		Name:      group.Name,
		JoinCode:  group.JoinCode,
		ImageURL:  group.ImageURL,
		CreatedBy: group.CreatedBy,
		IsPrimary: group.IsPrimary,
		Members:   memberResponses,
		CreatedAt: group.CreatedAt,
	}
}
