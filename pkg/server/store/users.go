package store

import "github.com/halyard-advisory/halyard/pkg/model"

// UsersStore manages users known through the identity provider
type UsersStore interface {
	// EnsureUser upserts a user by subject. New users get defaultRole; an
	// existing user's email and name are refreshed but the role is kept.
	// Returns ErrEmailInUse when another subject already holds the email.
	EnsureUser(subject, email, name, defaultRole string) (*model.User, error)

	// GetUser returns ErrNotFound for unknown ids.
	GetUser(id uint) (*model.User, error)

	ListUsers() ([]model.User, error)

	// SetRole changes the role of the user with the given email.
	SetRole(email, role string) (*model.User, error)
}
