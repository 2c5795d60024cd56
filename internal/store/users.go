package store

import (
	"gorm.io/gorm"

	apperrors "github.com/woodentreasures/playhouse-server/internal/errors"
	"github.com/woodentreasures/playhouse-server/internal/models"
)

// GetUserByEmail fetches an admin account by email
func (s *Store) GetUserByEmail(email string) (*models.UserAuth, error) {
	var user models.UserAuth
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFoundError("user not found", err)
		}
		return nil, apperrors.NewStoreError("failed to fetch user", err)
	}
	return &user, nil
}

// EnsureAdmin seeds the admin account when it does not exist yet.
// The stored hash is never overwritten from configuration.
func (s *Store) EnsureAdmin(email, passwordHash string) error {
	var count int64
	if err := s.db.Model(&models.UserAuth{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return apperrors.NewStoreError("failed to check admin account", err)
	}
	if count > 0 {
		return nil
	}

	user := models.UserAuth{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         "admin",
	}
	if err := s.db.Create(&user).Error; err != nil {
		return apperrors.NewStoreError("failed to seed admin account", err)
	}
	return nil
}
