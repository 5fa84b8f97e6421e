package store

import (
	"context"
	"errors"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Users exposes user-related persistence operations.
type Users struct {
	db *gorm.DB
}

// NewUsers constructs a users repo bound to the provided GORM DB.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// GetOrCreate is idempotent: the first interaction inserts the row, later
// calls return it unchanged except for a handle refresh when the chat handle
// moved. The created flag lets callers log first registrations.
func (r *Users) GetOrCreate(ctx context.Context, id int64, firstName, lastName string, handle *string) (*models.User, bool, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err == nil {
		if handleChanged(user.Handle, handle) {
			if err := r.db.WithContext(ctx).
				Model(&models.User{}).
				Where("id = ?", id).
				UpdateColumn("handle", handle).Error; err != nil {
				return nil, false, err
			}
			user.Handle = handle
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user = models.User{
		ID:        id,
		FirstName: firstName,
		LastName:  lastName,
		Handle:    handle,
	}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// FindByID loads a user by their chat ID.
func (r *Users) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// All returns every registered user, oldest first. Used by the broadcast
// fan-out.
func (r *Users) All(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("registered_at ASC").Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func handleChanged(current, next *string) bool {
	if current == nil && next == nil {
		return false
	}
	if current == nil || next == nil {
		return true
	}
	return *current != *next
}
