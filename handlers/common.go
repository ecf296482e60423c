package handlers

import (
	"errors"
	"log"
	"mealmates-backend/config"
	"mealmates-backend/database"
	"mealmates-backend/services"
	"mealmates-backend/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	recipeSource     *services.RecipeClient
	preloadCache     *services.PreloadCache
	voteService      *services.VoteService
	dinnerService    *services.DinnerService
	archiveService   *services.ArchiveService
	conflictResolver *services.ConflictResolver
)

// InitServices wires the service layer; called from main after the database
// (and optionally Redis) connections are up.
func InitServices() {
	recipeSource = services.NewRecipeClient(config.AppConfig.MealAPIBaseURL)
	preloadCache = services.NewPreloadCache(database.Redis, recipeSource)
	voteService = services.NewVoteService(database.DB, recipeSource, preloadCache)
	dinnerService = services.NewDinnerService(database.DB, voteService)
	archiveService = services.NewArchiveService(database.DB)
	conflictResolver = services.NewConflictResolver(database.DB)
}

// serviceError maps the service error taxonomy onto HTTP responses. Conflict
// errors carry the existing session summary so clients can offer view vs.
// replace; timeouts are distinguished so clients can suggest retrying.
func serviceError(c *gin.Context, err error) {
	var exists *services.ActiveRequestExistsError
	switch {
	case errors.As(err, &exists):
		utils.ErrorResponseWithData(c, http.StatusConflict, err.Error(), exists.Existing)
	case errors.Is(err, services.ErrNotMember):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrRequestNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, services.ErrAlreadyTerminated):
		utils.Conflict(c, err.Error())
	case errors.Is(err, services.ErrTimeout):
		utils.Timeout(c, err.Error())
	default:
		log.Printf("❌ Unexpected service error: %v", err)
		utils.InternalError(c, "Something went wrong")
	}
}
