package model

import "time"

// Academy owns classes and lessons. DefaultWatchMultiplier applies to every
// lesson that does not set its own.
type Academy struct {
	ID                     string    `json:"id" gorm:"primaryKey"`
	Name                   string    `json:"name" gorm:"not null"`
	DefaultWatchMultiplier *float64  `json:"default_watch_multiplier"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Lesson groups one or more videos inside an academy
type Lesson struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	AcademyID       string    `json:"academy_id" gorm:"not null;index"`
	Title           string    `json:"title" gorm:"not null"`
	WatchMultiplier *float64  `json:"watch_multiplier"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relationship
	Academy Academy `json:"academy" gorm:"foreignKey:AcademyID"`
}

// Video is the playable unit. DurationSeconds is nil until transcoding
// reports it.
type Video struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	LessonID        string    `json:"lesson_id" gorm:"not null;index"`
	Title           string    `json:"title"`
	DurationSeconds *float64  `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relationship
	Lesson Lesson `json:"lesson" gorm:"foreignKey:LessonID"`
}
