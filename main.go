package main

import (
	"log"
	"mealmates-backend/config"
	"mealmates-backend/database"
	"mealmates-backend/handlers"
	"mealmates-backend/middleware"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config.Load()

	// Connect to database
	database.Connect()

	// Connect to Redis (optional, won't crash if unavailable)
	database.ConnectRedis()

	// Wire service layer
	handlers.InitServices()

	// Setup router
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": config.AppConfig.AppName,
		})
	})

	// ==========================================
	// AUTH ROUTES (public)
	// ==========================================
	auth := r.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	// ==========================================
	// API ROUTES (authenticated)
	// ==========================================
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	{
		// User
		api.GET("/users/me", handlers.GetProfile)
		api.PUT("/users/me", handlers.UpdateProfile)
		api.PUT("/users/me/fcm-token", handlers.UpdateFCMToken)
		api.POST("/users/search", handlers.SearchUsers)

		// Groups
		api.POST("/groups", handlers.CreateGroup)
		api.POST("/groups/join", handlers.JoinGroup)
		api.GET("/groups", handlers.GetGroups)
		api.GET("/groups/:id", handlers.GetGroup)
		api.DELETE("/groups/:id", handlers.DeleteGroup)
		api.DELETE("/groups/:id/members/me", handlers.LeaveGroup)
		api.POST("/groups/:id/invite", handlers.InviteToGroupHandler)

		// Dinner requests
		api.POST("/groups/:id/dinner-requests", handlers.CreateDinnerRequest)
		api.GET("/dinner-requests", handlers.ListPendingDinnerRequests)
		api.POST("/dinner-requests/:id/respond", handlers.RespondToDinnerRequest)
		api.POST("/dinner-requests/:id/complete", handlers.CompleteDinnerRequest)

		// Vote sessions
		api.POST("/groups/:id/vote-sessions", handlers.OpenVoteSession)
		api.POST("/groups/:id/vote-sessions/replace", handlers.ReplaceVoteSession)
		api.GET("/groups/:id/vote-sessions/active", handlers.GetActiveVoteSession)
		api.POST("/vote-sessions/:id/votes", handlers.CastVote)
		api.GET("/vote-sessions/:id/tally", handlers.GetTally)
		api.GET("/vote-sessions/:id/ranked", handlers.GetTopRanked)
		api.POST("/vote-sessions/:id/close", handlers.CloseVoteSession)

		// Session lifecycle
		api.POST("/groups/:id/terminate", handlers.TerminateSession)
		api.GET("/groups/:id/last-session", handlers.GetLastSession)
		api.GET("/groups/:id/conflicts", handlers.DetectConflicts)
		api.POST("/groups/:id/conflicts/resolve", handlers.ResolveConflicts)
		api.POST("/preload/warm", handlers.WarmPreload)

		// Activity
		api.GET("/activity", handlers.GetActivity)
		api.GET("/groups/:id/activity", handlers.GetGroupActivity)
	}

	// Start server
	port := config.AppConfig.Port
	log.Printf("🚀 %s server starting on port %s", config.AppConfig.AppName, port)

	addr := "0.0.0.0:" + port
	log.Printf("🚀 Listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
