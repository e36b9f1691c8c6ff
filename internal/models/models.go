package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            uuid.UUID `gorm:"primaryKey"           json:"id"`
	Username      string    `gorm:"uniqueIndex;not null" json:"username"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	Fullname      string    `gorm:"not null"             json:"fullname"`
	AvatarURL     string    `gorm:"not null"             json:"avatarUrl"`
	CoverImageURL string    `gorm:"not null;default:''"  json:"coverImageUrl"`
	PasswordHash  string    `gorm:"not null"             json:"-"`
	RefreshToken  *string   `                            json:"-"`
	CreatedAt     time.Time `                            json:"createdAt"`
	UpdatedAt     time.Time `                            json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// StoredRefreshToken returns the persisted refresh token, "" when logged out.
func (u *User) StoredRefreshToken() string {
	if u.RefreshToken == nil {
		return ""
	}
	return *u.RefreshToken
}

// Profile is the self view of a user returned without an envelope.
type Profile struct {
	Username      string `json:"username"`
	Fullname      string `json:"fullname"`
	Email         string `json:"email"`
	AvatarURL     string `json:"avatarUrl"`
	CoverImageURL string `json:"coverImageUrl"`
}

func (u *User) Profile() Profile {
	return Profile{
		Username:      u.Username,
		Fullname:      u.Fullname,
		Email:         u.Email,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
	}
}
