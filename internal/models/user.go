package models

import (
	"fmt"
	"time"
)

// User represents a platform account
type User struct {
	ID            string     `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	FirstName     string     `json:"firstName" db:"first_name"`
	LastName      string     `json:"lastName" db:"last_name"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	IsVerified    bool       `json:"isVerified" db:"is_verified"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	IsStaff       bool       `json:"isStaff" db:"is_staff"`
	IsKYCVerified bool       `json:"isKycVerified" db:"is_kyc_verified"`
	ReferralCode  string     `json:"referralCode" db:"referral_code"`
	ReferredBy    *string    `json:"referredBy,omitempty" db:"referred_by"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	LastLogin     *time.Time `json:"lastLogin,omitempty" db:"last_login"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}

// OTPToken represents a pending one-time password for a user.
// A token expires ten minutes after issuance.
type OTPToken struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Purpose   string    `json:"purpose" db:"purpose"`
	Secret    string    `json:"-" db:"secret"`
	Consumed  bool      `json:"consumed" db:"consumed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
}

// IsExpired reports whether the token is past its expiry
func (t *OTPToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
