package handlers

import (
	"fmt"
	"mealmates-backend/database"
	"mealmates-backend/models"
	"mealmates-backend/services"
	"mealmates-backend/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// POST /api/groups/:id/dinner-requests
func CreateDinnerRequest(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var req models.CreateDinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	result, err := dinnerService.CreateRequest(c.Request.Context(), groupID, userID, req)
	if err != nil {
		serviceError(c, err)
		return
	}

	// Log activity and notify members
	var requester models.User
	database.DB.First(&requester, userID)
	var group models.Group
	database.DB.First(&group, groupID)

	database.DB.Create(&models.Activity{
		GroupID:     groupID,
		UserID:      userID,
		Type:        "dinner_requested",
		ReferenceID: result.Request.ID,
		Description: fmt.Sprintf("%s requested a dinner decision for %s", requester.Name, result.Request.Date.Format("Jan 2")),
	})

	go services.GetNotificationService().NotifyDinnerRequested(group, requester, *result.Request)

	utils.SuccessResponse(c, http.StatusCreated, "Dinner request created", result)
}

// POST /api/dinner-requests/:id/respond
func RespondToDinnerRequest(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid request ID")
		return
	}

	var req models.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	readiness, err := dinnerService.RecordResponse(c.Request.Context(), requestID, userID, req.Response)
	if err != nil {
		serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Response recorded", readiness)
}

// GET /api/dinner-requests — pending requests across the caller's groups
func ListPendingDinnerRequests(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)

	pending, err := dinnerService.ListPendingForUser(c.Request.Context(), userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", pending)
}

// POST /api/dinner-requests/:id/complete
func CompleteDinnerRequest(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid request ID")
		return
	}

	updated, err := dinnerService.Complete(c.Request.Context(), requestID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	if !updated {
		utils.SuccessResponse(c, http.StatusOK, "Request was already completed or cancelled", gin.H{"updated": false})
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Request completed", gin.H{"updated": true})
}
