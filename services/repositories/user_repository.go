package repositories

import (
	"context"

	"github.com/alexxvives/akademo_api/model"
	"gorm.io/gorm"
)

// UserRepository handles user-related database operations
type UserRepository struct {
	BaseRepository
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (ds *UserRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	if err := ds.withContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (ds *UserRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := ds.withContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ds *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	return ds.withContext(ctx).Create(user).Error
}
