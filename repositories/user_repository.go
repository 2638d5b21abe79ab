package repositories

import (
	"context"
	"fmt"

	"wiki-engine/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	UpdateRole(ctx context.Context, user *models.User, role models.UserRole) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	return translate(err, nil, models.ErrorConflict{Message: "user already exists"})
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translate(err, models.ErrorNotFound{Message: "user not found"}, nil)
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, translate(err, models.ErrorNotFound{Message: fmt.Sprintf("user %d not found", id)}, nil)
	}
	return &user, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, user *models.User, role models.UserRole) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("role", role).Error
	if err != nil {
		return err
	}
	user.Role = role
	return nil
}
