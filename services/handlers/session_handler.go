package handlers

import (
	"net/http"

	"github.com/alexxvives/akademo_api/shared"
	"github.com/gofiber/fiber/v2"
)

type SessionHandler struct {
	sessionSvc SessionServiceInterface
}

func NewSessionHandler(sessionSvc SessionServiceInterface) *SessionHandler {
	return &SessionHandler{
		sessionSvc: sessionSvc,
	}
}

// @Summary Check in the current device
// @Description Registers the calling device. For students this device becomes the only active one and every other device of the account is signed out.
// @Tags session
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Bearer Token" default(Bearer <token>)
// @Success 200 {object} shared.Response{data=dto.CheckInResult}
// @Failure 401 {object} shared.Response{data=dto.CheckInResult}
// @Router /api/v1/session/check-in [post]
func (h *SessionHandler) CheckIn(c *fiber.Ctx) error {
	result := h.sessionSvc.CheckIn(c.UserContext(), shared.CallerIdentity(c), shared.CallerDevice(c))
	if !result.Valid {
		return shared.ResponseJSON(c, http.StatusUnauthorized, "Session rejected", result)
	}

	return shared.ResponseJSON(c, http.StatusOK, "Session active", result)
}

// @Summary Validate the current device
// @Description Polled by players to learn whether this device is still the active session. valid=false means playback must stop.
// @Tags session
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Bearer Token" default(Bearer <token>)
// @Success 200 {object} shared.Response{data=dto.SessionValidityResponse}
// @Router /api/v1/session/validate [get]
func (h *SessionHandler) Validate(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")

	result := h.sessionSvc.Validate(c.UserContext(), shared.CallerIdentity(c), shared.CallerDevice(c))
	return shared.ResponseOK(c, result)
}
