package authorization

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// UserStore provides data access helpers for User records backed by GORM.
type UserStore struct {
	db *gorm.DB
}

// UpdateUserParams enumerates the fields eligible for a partial user update.
// Nil pointers leave the corresponding column untouched.
type UpdateUserParams struct {
	Email        *string
	FullName     *string
	IsActive     *bool
	PasswordHash *string
}

// FindByID loads a user by primary key.
func (s *UserStore) FindByID(ctx context.Context, id uint) (*User, error) {
	if s == nil {
		return nil, errors.New("authorization: user store not initialized")
	}
	var user User
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindByEmail loads a user by unique email. The match is a case-sensitive
// exact comparison; no normalization is applied.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	result := s.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// List returns users ordered by primary key with offset/limit pagination.
func (s *UserStore) List(ctx context.Context, skip, limit int) ([]User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	var users []User
	err := s.db.WithContext(ctx).Order("id").Offset(skip).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Create inserts a new user record.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// Update applies the provided partial update and returns the refreshed record.
func (s *UserStore) Update(ctx context.Context, id uint, params UpdateUserParams) (*User, error) {
	if s == nil {
		return nil, errors.New("authorization: user store not initialized")
	}

	updates := make(map[string]interface{})

	if params.Email != nil {
		email := strings.TrimSpace(*params.Email)
		if email == "" {
			return nil, ErrInvalidEmail
		}
		updates["email"] = email
	}

	if params.FullName != nil {
		name := strings.TrimSpace(*params.FullName)
		if name == "" {
			updates["full_name"] = nil
		} else {
			updates["full_name"] = name
		}
	}

	if params.IsActive != nil {
		updates["is_active"] = *params.IsActive
	}

	if params.PasswordHash != nil {
		updates["hashed_password"] = *params.PasswordHash
	}

	if len(updates) == 0 {
		return s.FindByID(ctx, id)
	}

	updates["updated_at"] = time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return s.FindByID(ctx, id)
}

// Delete removes a user record; gorm.ErrRecordNotFound when no row matched.
func (s *UserStore) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
