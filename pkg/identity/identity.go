package identity

import (
	"context"
	"net"
	"time"

	"github.com/halyard-advisory/halyard/pkg/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the authenticated user of a request.
// It combines verified token claims with the matching users row.
type Identity struct {
	// Users row
	UserID uint
	Role   string

	// Token claims
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP
}

// FromUser creates an Identity for a users row.
func FromUser(u *model.User) *Identity {
	return &Identity{
		UserID:  u.ID,
		Role:    u.Role,
		Subject: u.Subject,
		Email:   u.Email,
		Name:    u.Name,
	}
}

// WithExpiry sets the token expiry.
func (i *Identity) WithExpiry(exp time.Time) *Identity {
	i.ExpiresAt = exp
	return i
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// IsAdmin returns true for staff accounts.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == model.RoleAdmin
}

// CanAccess reports whether the identity may see a record owned by ownerID.
// Admins see everything; clients only their own records.
func (i *Identity) CanAccess(ownerID uint) bool {
	if i == nil {
		return false
	}
	return i.IsAdmin() || i.UserID == ownerID
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
