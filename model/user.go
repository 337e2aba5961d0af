package model

import "time"

type User struct {
	ID        string `gorm:"primaryKey"`
	Email     string `gorm:"unique"`
	Name      string
	Role      string `gorm:"not null;size:16;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
