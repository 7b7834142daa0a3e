package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/miraclezmoon/TELEBOT-19/models"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// ErrInvalidCredentials is returned for an unknown operator or a wrong password.
var ErrInvalidCredentials = newError(KindInvalidInput, "admin: invalid username or password")

// Admins manages dashboard operators.
type Admins struct {
	store *Store
	log   *zap.Logger
	now   func() time.Time
}

// Create adds an operator, or resets the password of an existing one.
func (a *Admins) Create(ctx context.Context, username, password string) (models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Admin{}, invalidInput("admin username is required")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		if errors.Is(err, utils.ErrWeakPassword) {
			return models.Admin{}, invalidInput("admin password must be at least %d characters", utils.MinPasswordLength)
		}
		return models.Admin{}, storageError("hash password", err)
	}

	var admin models.Admin
	err = a.store.Write(ctx, "admins.create", func(tx *Tx) error {
		err := tx.Where("username = ?", username).First(&admin).Error
		switch {
		case err == nil:
			if err := tx.Model(&admin).Update("password_hash", hash).Error; err != nil {
				return storageError("update admin", err)
			}
			return nil
		case isNotFound(err):
			admin = models.Admin{Username: username, DisplayName: username, PasswordHash: hash}
			if err := tx.Create(&admin).Error; err != nil {
				return storageError("insert admin", err)
			}
			return nil
		default:
			return storageError("load admin", err)
		}
	})
	if err != nil {
		return models.Admin{}, err
	}
	a.log.Info("admin saved", zap.String("username", username))
	return admin, nil
}

// Authenticate checks an operator's password and stamps the login time.
func (a *Admins) Authenticate(ctx context.Context, username, password string) (models.Admin, error) {
	var admin models.Admin
	err := a.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.Where("username = ?", strings.TrimSpace(username)).First(&admin).Error; err != nil {
			if isNotFound(err) {
				return ErrInvalidCredentials
			}
			return storageError("load admin", err)
		}
		return nil
	})
	if err != nil {
		return models.Admin{}, err
	}
	if !utils.CheckPassword(admin.PasswordHash, password) {
		a.log.Warn("admin login rejected", zap.String("username", admin.Username))
		return models.Admin{}, ErrInvalidCredentials
	}

	now := a.now()
	err = a.store.Write(ctx, "admins.login", func(tx *Tx) error {
		if err := tx.Model(&admin).Update("last_login_at", now).Error; err != nil {
			return storageError("stamp admin login", err)
		}
		return nil
	})
	if err != nil {
		return models.Admin{}, err
	}
	admin.LastLoginAt = &now
	return admin, nil
}

// Get loads an operator by id.
func (a *Admins) Get(ctx context.Context, id uint) (models.Admin, error) {
	var admin models.Admin
	err := a.store.Read(ctx, func(db *gorm.DB) error {
		if err := db.First(&admin, id).Error; err != nil {
			if isNotFound(err) {
				return ErrInvalidCredentials
			}
			return storageError("load admin", err)
		}
		return nil
	})
	return admin, err
}
