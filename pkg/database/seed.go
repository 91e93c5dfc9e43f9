package database

import (
	"errors"

	"github.com/surdiana/authd/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedSuperuser provisions the bootstrap superuser when the credentials are
// configured and no user with that login exists yet.
func SeedSuperuser(db *gorm.DB, login, password string) error {
	if login == "" || password == "" {
		return nil
	}

	var existing model.User
	result := db.Where("login = ?", login).First(&existing)
	if result.Error == nil {
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := model.User{
		Login:       login,
		Password:    string(hashed),
		IsSuperuser: true,
	}
	return db.Create(&user).Error
}
