package domain

import "time"

// User is an operator account. Email is stored lower-cased and never changes
// after registration.
type User struct {
	ID        UserID    `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Name      string    `gorm:"type:text;not null" db:"name" json:"name"`
	Email     string    `gorm:"type:text;not null;uniqueIndex:ux_users_email" db:"email" json:"email"`
	CreatedAt time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
