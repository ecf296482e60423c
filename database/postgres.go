package database

import (
	"log"
	"mealmates-backend/config"
	"mealmates-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect() {
	var err error
	DB, err = gorm.Open(postgres.Open(config.AppConfig.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Info),
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("✅ Database connected successfully")

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	log.Println("✅ Database migrated successfully")
}

// Migrate runs auto-migration plus the constraints AutoMigrate cannot express.
// Shared with the test suite, which runs it against sqlite.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.DinnerRequest{},
		&models.DinnerResponse{},
		&models.MealRequest{},
		&models.MealOption{},
		&models.MealVote{},
		&models.TerminatedSession{},
		&models.Activity{},
		&models.Invitation{},
	)
	if err != nil {
		return err
	}

	// At most one active vote session per group. Partial so that any number of
	// completed/cancelled rows can coexist for the same group.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_meal_requests_one_active
		 ON meal_requests (group_id) WHERE status = 'active'`,
	).Error
}
