package model

import "time"

const (
	PlayStatusActive  = "ACTIVE"
	PlayStatusBlocked = "BLOCKED"
)

// PlayState is the per (video, student) watch-time ledger. Time values are
// stored as integer milliseconds so that many small increments never drift.
type PlayState struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	VideoID          string     `json:"video_id" gorm:"not null;size:64;uniqueIndex:idx_play_states_video_student"`
	StudentID        string     `json:"student_id" gorm:"not null;size:64;uniqueIndex:idx_play_states_video_student;index"`
	TotalWatchTimeMs int64      `json:"total_watch_time_ms" gorm:"not null;default:0"`
	LastPositionMs   int64      `json:"last_position_ms" gorm:"not null;default:0"`
	SessionStartTime *time.Time `json:"session_start_time"`
	Status           string     `json:"status" gorm:"not null;size:16;default:'ACTIVE'"`

	// Server-side tick observation, used to derive elapsed wall-clock time
	LastTickAt    *time.Time `json:"-"`
	LastTickFinal bool       `json:"-" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	// Relationship
	Video *Video `json:"-" gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE"`
}

func (p PlayState) IsBlocked() bool {
	return p.Status == PlayStatusBlocked
}
