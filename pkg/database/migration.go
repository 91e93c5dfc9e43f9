package database

import (
	"github.com/surdiana/authd/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.SocialAccount{},
		&model.LoginHistory{},
	)
}
