package gorm

import (
	"gorm.io/gorm"

	"github.com/halyard-advisory/halyard/pkg/model"
	"github.com/halyard-advisory/halyard/pkg/server/store"
)

// Ensure UsersStore implements store.UsersStore
var _ store.UsersStore = (*UsersStore)(nil)

// UsersStore implements store.UsersStore using GORM
type UsersStore struct {
	db *gorm.DB
}

// NewUsersStore creates a new UsersStore
func NewUsersStore(db *gorm.DB) *UsersStore {
	return &UsersStore{db: db}
}

// EnsureUser upserts a user by identity provider subject
func (s *UsersStore) EnsureUser(subject, email, name, defaultRole string) (*model.User, error) {
	var user model.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("subject = ?", subject).First(&user).Error
		if err == gorm.ErrRecordNotFound {
			user = model.User{Subject: subject, Email: email, Name: name, Role: defaultRole}
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if email != "" && email != user.Email {
			updates["email"] = email
		}
		if name != "" && name != user.Name {
			updates["name"] = name
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&model.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return err
		}
		if email != "" {
			user.Email = email
		}
		if name != "" {
			user.Name = name
		}
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetUser returns a user by id
func (s *UsersStore) GetUser(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by email
func (s *UsersStore) ListUsers() ([]model.User, error) {
	var users []model.User
	if err := s.db.Order("email").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetRole changes the role of the user with the given email
func (s *UsersStore) SetRole(email, role string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("lower(email) = lower(?)", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	if user.Role == role {
		return &user, nil
	}
	if err := s.db.Model(&model.User{}).Where("id = ?", user.ID).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return &user, nil
}
