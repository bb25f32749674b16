package authorization

import "time"

// User is an administrative account stored in the local database.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	HashedPassword string    `gorm:"size:255;not null" json:"-"`
	FullName       *string   `gorm:"size:255" json:"full_name"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser    bool      `gorm:"not null;default:false" json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
