package user

import (
	"time"
)

// User represents a registered account.
type User struct {
	ID                   string `gorm:"primaryKey;type:text"`
	Username             string `gorm:"uniqueIndex;not null;type:text"`
	Email                string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash         string `gorm:"not null;type:text"`
	ResetPasswordToken   string `gorm:"index;type:text"`
	ResetPasswordExpires time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// PublicProfile is the externally visible slice of an account.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Profile returns the externally visible slice of the user.
func (u *User) Profile() PublicProfile {
	return PublicProfile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}
