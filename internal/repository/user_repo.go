package repository

import (
	"context"
	"fmt"

	"student-registry/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername finds a user by its (already normalized) username
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", username))
	}
	return &user, nil
}

// FindByTokenHash finds the user currently bound to a token hash
func (r *UserRepository) FindByTokenHash(ctx context.Context, hash string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&user).Error
	if err != nil {
		return nil, translate(err, "token")
	}
	return &user, nil
}

// FindOwner returns the Owner account
func (r *UserRepository) FindOwner(ctx context.Context) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("role = ?", models.RoleOwner).First(&user).Error
	if err != nil {
		return nil, translate(err, "owner")
	}
	return &user, nil
}

// List returns all users ordered by username
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("username ASC").Find(&users).Error
	if err != nil {
		return nil, translate(err, "users")
	}
	return users, nil
}

// Create inserts a new user. A taken username yields a conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return gorm.ErrDuplicatedKey
		}
		return tx.Create(user).Error
	})
	return translate(err, fmt.Sprintf("user %q", user.Username))
}

// Update locks the user row, applies fn and saves the result in one transaction.
// An error returned by fn aborts the update and is passed through unchanged.
func (r *UserRepository) Update(ctx context.Context, username string, fn func(user *models.User) error) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("username = ?", username).
			First(&user).Error; err != nil {
			return err
		}
		if err := fn(&user); err != nil {
			return err
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", username))
	}
	return &user, nil
}

// SetTokenHash binds a token hash to the user, replacing any previous one.
// A nil hash revokes the current token.
func (r *UserRepository) SetTokenHash(ctx context.Context, username string, hash *string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Update("token_hash", hash)
	if result.Error != nil {
		return translate(result.Error, fmt.Sprintf("user %q", username))
	}
	return nil
}

// Delete permanently deletes a user
func (r *UserRepository) Delete(ctx context.Context, username string) error {
	result := r.db.WithContext(ctx).Where("username = ?", username).Delete(&models.User{})
	if result.Error != nil {
		return translate(result.Error, fmt.Sprintf("user %q", username))
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, fmt.Sprintf("user %q", username))
	}
	return nil
}
