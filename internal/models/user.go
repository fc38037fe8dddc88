package models

import "time"

// User represents the users table
// Username is the primary key and is always stored lowercase.
type User struct {
	Username     string    `gorm:"primaryKey;size:50" json:"username"`
	PasswordHash string    `gorm:"not null;size:255" json:"-"`
	Role         Role      `gorm:"size:16;not null;default:'guest';index" json:"role"`
	TokenHash    *string   `gorm:"size:64;uniqueIndex" json:"-"` // SHA-256 of the active API token
	Suspended    bool      `gorm:"not null;default:false" json:"suspended"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// UserSummary is the public view of a user returned by admin listings
type UserSummary struct {
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	Suspended bool   `json:"suspended"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		Username:  u.Username,
		Role:      u.Role,
		Suspended: u.Suspended,
	}
}
