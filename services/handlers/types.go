package handlers

import (
	"context"

	"github.com/alexxvives/akademo_api/dto"
)

type SessionServiceInterface interface {
	CheckIn(ctx context.Context, caller dto.Identity, device dto.DeviceInfo) dto.CheckInResult
	Validate(ctx context.Context, caller dto.Identity, device dto.DeviceInfo) dto.SessionValidityResponse
}

type PlayStateServiceInterface interface {
	GetOrInit(ctx context.Context, caller dto.Identity, videoID, studentID string) (*dto.PlayStateResponse, error)
	ApplyTick(ctx context.Context, caller dto.Identity, videoID string, req dto.TickRequest) (*dto.TickResponse, error)
	Reset(ctx context.Context, caller dto.Identity, videoID, studentID string) (*dto.PlayStateResponse, error)
	ListByVideo(ctx context.Context, caller dto.Identity, videoID string, limit, offset int) (*dto.PlayStateListResponse, error)
}
