package auth

import "time"

type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"uniqueIndex;not null"`
	DisplayName  string    `gorm:"not null;default:''"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`

	// ActiveGroupID is the jar the user last switched to.
	ActiveGroupID *uint64 `gorm:"index"`
	// LegacyGroupID is the single-jar pointer carried by accounts created
	// before multi-jar membership existed.
	LegacyGroupID *uint64
}
