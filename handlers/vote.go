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

// POST /api/groups/:id/vote-sessions
func OpenVoteSession(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var req models.OpenVoteRequest
	c.ShouldBindJSON(&req) // option_count optional

	request, err := voteService.Open(c.Request.Context(), groupID, userID, req.OptionCount)
	if err != nil {
		serviceError(c, err)
		return
	}

	logVoteOpened(groupID, userID, request)

	utils.SuccessResponse(c, http.StatusCreated, "Vote session opened", request)
}

// POST /api/groups/:id/vote-sessions/replace
func ReplaceVoteSession(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return
	}

	var req models.ReplaceVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	existingID, err := uuid.Parse(req.ExistingRequestID)
	if err != nil {
		utils.BadRequest(c, "Invalid existing request ID")
		return
	}

	request, err := voteService.Replace(c.Request.Context(), groupID, userID, req.OptionCount, existingID)
	if err != nil {
		serviceError(c, err)
		return
	}

	logVoteOpened(groupID, userID, request)

	utils.SuccessResponse(c, http.StatusCreated, "Vote session replaced", request)
}

// GET /api/groups/:id/vote-sessions/active
func GetActiveVoteSession(c *gin.Context) {
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

	request, err := voteService.ActiveRequest(c.Request.Context(), groupID)
	if err != nil {
		serviceError(c, err)
		return
	}
	if request == nil {
		utils.SuccessResponse(c, http.StatusOK, "No active vote session", nil)
		return
	}

	var options []models.MealOption
	database.DB.Where("request_id = ?", request.ID).Order("order_index ASC").Find(&options)

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"request": request,
		"options": options,
	})
}

// POST /api/vote-sessions/:id/votes
func CastVote(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid request ID")
		return
	}

	var req models.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	optionID, err := uuid.Parse(req.OptionID)
	if err != nil {
		utils.BadRequest(c, "Invalid option ID")
		return
	}

	if err := voteService.Vote(c.Request.Context(), requestID, optionID, userID, req.Vote); err != nil {
		serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vote recorded", nil)
}

// GET /api/vote-sessions/:id/tally
func GetTally(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid request ID")
		return
	}

	tally, err := voteService.Tally(c.Request.Context(), requestID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", tally)
}

// GET /api/vote-sessions/:id/ranked?k=3
func GetTopRanked(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid request ID")
		return
	}

	var query struct {
		K int `form:"k,default=3"`
	}
	c.ShouldBindQuery(&query)

	ranked, err := voteService.TopRanked(c.Request.Context(), requestID, userID, query.K)
	if err != nil {
		serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", ranked)
}

// POST /api/vote-sessions/:id/close
func CloseVoteSession(c *gin.Context) {
	userID := utils.GetCurrentUserID(c)
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid request ID")
		return
	}

	if err := voteService.Close(c.Request.Context(), requestID, userID); err != nil {
		serviceError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Vote session closed", nil)
}

func logVoteOpened(groupID, userID uuid.UUID, request *models.MealRequest) {
	var requester models.User
	database.DB.First(&requester, userID)
	var group models.Group
	database.DB.First(&group, groupID)

	database.DB.Create(&models.Activity{
		GroupID:     groupID,
		UserID:      userID,
		Type:        "vote_opened",
		ReferenceID: request.ID,
		Description: fmt.Sprintf("%s opened a vote with %d meal options", requester.Name, request.TotalOptions),
	})

	go services.GetNotificationService().NotifyVoteOpened(group, requester, *request)
}
