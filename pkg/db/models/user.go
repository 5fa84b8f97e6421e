package models

import "time"

// User is a customer or staff member identified by their chat ID.
// Created on first interaction; immutable except for handle refresh.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	FirstName    string    `gorm:"column:first_name;not null"`
	LastName     string    `gorm:"column:last_name;not null"`
	Handle       *string   `gorm:"column:handle"`
	RegisteredAt time.Time `gorm:"column:registered_at;autoCreateTime"`
}

// FullName renders the display name used in staff views and file names.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
