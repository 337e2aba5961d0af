package handlers

import (
	"net/http"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/gofiber/fiber/v2"
)

type PlayStateHandler struct {
	playStateSvc PlayStateServiceInterface
}

func NewPlayStateHandler(playStateSvc PlayStateServiceInterface) *PlayStateHandler {
	return &PlayStateHandler{
		playStateSvc: playStateSvc,
	}
}

// @Summary Get play state
// @Description Returns the watch-time state of a video for the caller, creating it on first access. Teachers and administrators may pass student_id.
// @Tags progress
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Bearer Token" default(Bearer <token>)
// @Param videoId path string true "Video ID"
// @Param student_id query string false "Student ID (privileged callers only)"
// @Success 200 {object} shared.Response{data=dto.PlayStateResponse}
// @Failure 403 {object} shared.Response
// @Failure 404 {object} shared.Response
// @Router /api/v1/videos/{videoId}/play-state [get]
func (h *PlayStateHandler) GetPlayState(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return shared.ResponseJSON(c, http.StatusBadRequest, "Video ID is required", nil)
	}

	state, err := h.playStateSvc.GetOrInit(c.UserContext(), shared.CallerIdentity(c), videoID, c.Query("student_id"))
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, state)
}

// @Summary Report watch progress
// @Description Credits elapsed watch time to the play state. A BLOCKED status in the response means the watch budget is used up and playback must stop.
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Bearer Token" default(Bearer <token>)
// @Param videoId path string true "Video ID"
// @Param tickRequest body dto.TickRequest true "Progress tick"
// @Success 200 {object} shared.Response{data=dto.TickResponse}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 403 {object} shared.Response
// @Failure 404 {object} shared.Response
// @Failure 503 {object} shared.Response
// @Router /api/v1/videos/{videoId}/play-state/tick [post]
func (h *PlayStateHandler) Tick(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return shared.ResponseJSON(c, http.StatusBadRequest, "Video ID is required", nil)
	}

	var req dto.TickRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseJSON(c, http.StatusBadRequest, "Invalid request", err.Error())
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.playStateSvc.ApplyTick(c.UserContext(), shared.CallerIdentity(c), videoID, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Progress recorded", resp)
}
