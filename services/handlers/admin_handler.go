package handlers

import (
	"net/http"
	"strconv"

	"github.com/alexxvives/akademo_api/shared"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	playStateSvc PlayStateServiceInterface
}

func NewAdminHandler(playStateSvc PlayStateServiceInterface) *AdminHandler {
	return &AdminHandler{
		playStateSvc: playStateSvc,
	}
}

// @Summary Reset watch time (Admin)
// @Description Zeroes a student's watch time on a video and lifts a BLOCKED status
// @Tags admin
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Teacher or Admin Bearer Token" default(Bearer <admin_token>)
// @Param videoId path string true "Video ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} shared.Response{data=dto.PlayStateResponse}
// @Failure 403 {object} shared.Response
// @Failure 404 {object} shared.Response
// @Router /api/v1/admin/videos/{videoId}/play-state/{studentId}/reset [post]
func (h *AdminHandler) ResetPlayState(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	studentID := c.Params("studentId")
	if videoID == "" || studentID == "" {
		return shared.ResponseJSON(c, http.StatusBadRequest, "Video ID and student ID are required", nil)
	}

	state, err := h.playStateSvc.Reset(c.UserContext(), shared.CallerIdentity(c), videoID, studentID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Play state reset successfully", state)
}

// @Summary List play states of a video (Admin)
// @Description Read-only view of every student's watch time on a video, most watched first
// @Tags admin
// @Produce json
// @Security Bearer
// @Param Authorization header string true "Teacher or Admin Bearer Token" default(Bearer <admin_token>)
// @Param videoId path string true "Video ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(50)
// @Success 200 {object} shared.Response{data=dto.PlayStateListResponse}
// @Router /api/v1/admin/videos/{videoId}/play-states [get]
func (h *AdminHandler) ListPlayStates(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return shared.ResponseJSON(c, http.StatusBadRequest, "Video ID is required", nil)
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	list, err := h.playStateSvc.ListByVideo(c.UserContext(), shared.CallerIdentity(c), videoID, limit, (page-1)*limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Play states retrieved successfully", list)
}
