package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// User is a person known through the external identity provider
type User struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	Subject   string    `gorm:"column:subject;uniqueIndex" json:"-"`
	Email     string    `gorm:"column:email" json:"email"`
	Name      string    `gorm:"column:name" json:"name"`
	Role      string    `gorm:"column:role" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is a known user role
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleClient
}
