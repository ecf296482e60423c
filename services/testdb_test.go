package services

import (
	"context"
	"fmt"
	"mealmates-backend/database"
	"mealmates-backend/models"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB creates an isolated sqlite database with the full schema,
// including the partial unique index on active meal requests.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// seedGroup creates a group with memberCount active members (the first is the
// creator/admin) and returns the group plus the member users in order.
func seedGroup(t *testing.T, db *gorm.DB, memberCount int) (models.Group, []models.User) {
	t.Helper()

	users := make([]models.User, memberCount)
	for i := range users {
		users[i] = models.User{
			Name:         fmt.Sprintf("User %d", i+1),
			Email:        fmt.Sprintf("user%d-%s@example.com", i+1, uuid.NewString()[:8]),
			PasswordHash: "x",
		}
		if err := db.Create(&users[i]).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	}

	group := models.Group{
		Name:      "Test Group",
		JoinCode:  uuid.NewString()[:6],
		CreatedBy: users[0].ID,
		IsActive:  true,
		IsPrimary: true,
	}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	for i, u := range users {
		role := "member"
		if i == 0 {
			role = "admin"
		}
		member := models.GroupMember{
			GroupID:  group.ID,
			UserID:   u.ID,
			Role:     role,
			IsActive: true,
		}
		if err := db.Create(&member).Error; err != nil {
			t.Fatalf("failed to create membership: %v", err)
		}
	}

	return group, users
}

// stubSource is a RecipeSource returning canned meals. Safe for the
// concurrent fetches the preload cache makes.
type stubSource struct {
	mu    sync.Mutex
	meals []models.MealPayload
	err   error
	calls int
}

func (s *stubSource) FetchBatch(ctx context.Context, offset, count int) ([]models.MealPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	meals := s.meals
	if count < len(meals) {
		meals = meals[:count]
	}
	out := make([]models.MealPayload, len(meals))
	copy(out, meals)
	return out, nil
}

func stubMeals(n int) []models.MealPayload {
	meals := make([]models.MealPayload, n)
	for i := range meals {
		meals[i] = models.MealPayload{
			ID:   fmt.Sprintf("meal-%d", i+1),
			Name: fmt.Sprintf("Meal %d", i+1),
		}
	}
	return meals
}

// newTestVoteService wires a VoteService with a stub catalog and an in-memory
// (Redis-less) preload cache.
func newTestVoteService(db *gorm.DB) (*VoteService, *stubSource) {
	source := &stubSource{meals: stubMeals(30)}
	preload := NewPreloadCache(nil, source)
	return NewVoteService(db, source, preload), source
}
