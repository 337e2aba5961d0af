package dto

import "time"

// CheckInResult is the outcome of a device check-in. Message is set when the
// check-in was refused.
type CheckInResult struct {
	Valid       bool   `json:"valid"`
	Fingerprint string `json:"fingerprint"`
	Message     string `json:"message,omitempty"`
}

type SessionValidityResponse struct {
	Valid       bool   `json:"valid"`
	Fingerprint string `json:"fingerprint"`
	Message     string `json:"message,omitempty"`
}

// DeviceInfo is what the fingerprint resolver extracted from a request.
type DeviceInfo struct {
	Fingerprint    string `json:"fingerprint"`
	UserAgent      string `json:"user_agent"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
	OSVersion      string `json:"os_version"`
	IPHash         string `json:"-"`
	ClientIP       string `json:"-"`
}

// KickNotice is left for a device that lost its session to another one.
type KickNotice struct {
	Message    string    `json:"message"`
	TakenOver  string    `json:"taken_over_by"`
	Location   string    `json:"location,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
