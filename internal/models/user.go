package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
	ProviderFacebook    = "facebook"
)

// User is a customer or an administrator. Either phone or email identifies the
// account at login; social accounts carry no password hash.
type User struct {
	BaseModel
	Name            string  `json:"name"`
	Email           *string `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone           *string `gorm:"uniqueIndex" json:"phone,omitempty"`
	PasswordHash    string  `json:"-"`
	Role            string  `gorm:"default:user;index" json:"role"`
	Provider        string  `gorm:"default:credentials" json:"provider"`
	ProfileComplete bool    `json:"profile_complete"`
}

// BeforeSave keeps derived columns in sync.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Provider == "" {
		u.Provider = ProviderCredentials
	}
	u.ProfileComplete = strings.TrimSpace(u.Name) != "" &&
		u.Email != nil && *u.Email != "" &&
		u.Phone != nil && *u.Phone != ""
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// HasPassword reports whether credential login is possible for the account.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// PhoneNumber returns the phone or an empty string.
func (u *User) PhoneNumber() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}

// EmailAddress returns the email or an empty string.
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

const (
	OTPPurposeLogin  = "login"
	OTPPurposeAdmin  = "admin"
	OTPPurposeSignup = "signup"
	OTPPurposeReset  = "reset"
)

// OTP keeps a hashed one-time code sent to a phone. Rows are deleted on use
// and on reissue.
type OTP struct {
	BaseModel
	Phone     string    `gorm:"index;not null" json:"phone"`
	CodeHash  string    `gorm:"not null" json:"-"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

// Expired reports whether the code can no longer be used at now.
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
