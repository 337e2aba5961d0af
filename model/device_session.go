package model

import "time"

// DeviceSession is one row per (user, fingerprint) ever seen. For students
// at most one row per user has IsActive set.
type DeviceSession struct {
	ID          string `json:"id" gorm:"primaryKey"`
	UserID      string `json:"user_id" gorm:"not null;size:64;uniqueIndex:idx_device_sessions_user_fingerprint;index:idx_device_sessions_user_active,priority:1"`
	Fingerprint string `json:"fingerprint" gorm:"not null;size:64;uniqueIndex:idx_device_sessions_user_fingerprint"`
	UserAgent   string `json:"user_agent" gorm:"size:512"`
	Browser     string `json:"browser" gorm:"size:64"`
	OS          string `json:"os" gorm:"size:64"`
	IPHash      string `json:"-" gorm:"size:64"`
	IsActive    bool   `json:"is_active" gorm:"not null;default:false;index:idx_device_sessions_user_active,priority:2"`

	// ActivationSeq grows by one on every check-in of the user. The active
	// row always carries the user's highest value.
	ActivationSeq int64 `json:"-" gorm:"not null;default:0"`

	LastSeenAt time.Time `json:"last_seen_at" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

// DeviceLabel is the human readable "Chrome on Windows" form used in kick
// notices.
func (d DeviceSession) DeviceLabel() string {
	switch {
	case d.Browser != "" && d.OS != "":
		return d.Browser + " on " + d.OS
	case d.Browser != "":
		return d.Browser
	case d.OS != "":
		return d.OS
	}
	return "another device"
}
