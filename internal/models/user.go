package models

import "time"

// User is a registered account. Password, session tokens and the avatar
// blob never leave the server.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"`
	Age       int       `json:"age" gorm:"not null;default:0"`
	Tokens    []Token   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Avatar    []byte    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasAvatar reports whether a profile picture is stored.
func (u *User) HasAvatar() bool {
	return len(u.Avatar) > 0
}

// Token is one active session of a user.
type Token struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"type:varchar(36);index;not null"`
	Token     string    `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt time.Time
}
