package services

import (
	"context"
	"mealmates-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func isActiveMember(ctx context.Context, db *gorm.DB, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		Count(&count).Error
	return count > 0, err
}

func activeMemberCount(ctx context.Context, db *gorm.DB, groupID uuid.UUID) (int, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Count(&count).Error
	return int(count), err
}
