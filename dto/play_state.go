package dto

import (
	"math"
	"time"

	"github.com/alexxvives/akademo_api/model"
)

// TickRequest is one progress report from the player. ElapsedSeconds <= 0
// is accepted and treated as a no-op.
type TickRequest struct {
	StudentID              string  `json:"student_id" validate:"omitempty,max=64"`
	ElapsedSeconds         float64 `json:"elapsed_seconds" validate:"finite,lte=3600"`
	CurrentPositionSeconds float64 `json:"current_position_seconds" validate:"finite,gte=0"`
	PlaybackRate           float64 `json:"playback_rate" validate:"omitempty,finite,gt=0,lte=16"`
	Final                  bool    `json:"final"`
}

func (r TickRequest) Validate() error {
	return GetValidator().Struct(r)
}

type PlayStateResponse struct {
	VideoID               string     `json:"video_id"`
	StudentID             string     `json:"student_id"`
	TotalWatchTimeSeconds float64    `json:"total_watch_time_seconds"`
	LastPositionSeconds   float64    `json:"last_position_seconds"`
	SessionStartTime      *time.Time `json:"session_start_time"`
	Status                string     `json:"status"`
	BudgetSeconds         *float64   `json:"budget_seconds"`
	RemainingWatchSeconds *float64   `json:"remaining_watch_seconds"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type TickResponse struct {
	PlayStateResponse
	CreditedSeconds float64 `json:"credited_seconds"`
	ElapsedSource   string  `json:"elapsed_source,omitempty"`
}

type PlayStateListResponse struct {
	VideoID string              `json:"video_id"`
	Items   []PlayStateResponse `json:"items"`
	Total   int                 `json:"total"`
}

// NewPlayStateResponse converts a stored row. budgetMs < 0 means unlimited.
func NewPlayStateResponse(state *model.PlayState, budgetMs int64) PlayStateResponse {
	resp := PlayStateResponse{
		VideoID:               state.VideoID,
		StudentID:             state.StudentID,
		TotalWatchTimeSeconds: MillisToSeconds(state.TotalWatchTimeMs),
		LastPositionSeconds:   MillisToSeconds(state.LastPositionMs),
		SessionStartTime:      state.SessionStartTime,
		Status:                state.Status,
		UpdatedAt:             state.UpdatedAt,
	}

	if budgetMs >= 0 {
		budget := MillisToSeconds(budgetMs)
		remaining := math.Max(0, MillisToSeconds(budgetMs-state.TotalWatchTimeMs))
		resp.BudgetSeconds = &budget
		resp.RemainingWatchSeconds = &remaining
	}

	return resp
}

func SecondsToMillis(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

func MillisToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}
