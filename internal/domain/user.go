package domain

import "time"

// User represents an authenticated account. PasswordHash is empty for
// accounts created through Google sign-in.
type User struct {
	ID                        string
	Name                      string
	Email                     string
	PasswordHash              string
	Avatar                    string
	IsActive                  bool
	Verified                  bool
	VerificationCode          string
	VerificationCodeExpiresAt *time.Time
	GoogleID                  string
	GoogleEmail               string
	GooglePicture             string
	IsAdmin                   bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// PublicUser is the user shape safe to return from the API: credential and
// verification fields are excluded.
type PublicUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Avatar        string    `json:"avatar,omitempty"`
	IsActive      bool      `json:"is_active"`
	Verified      bool      `json:"verified"`
	GoogleEmail   string    `json:"google_email,omitempty"`
	GooglePicture string    `json:"google_picture,omitempty"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Public strips credential and verification state from a User.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Avatar:        u.Avatar,
		IsActive:      u.IsActive,
		Verified:      u.Verified,
		GoogleEmail:   u.GoogleEmail,
		GooglePicture: u.GooglePicture,
		IsAdmin:       u.IsAdmin,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
