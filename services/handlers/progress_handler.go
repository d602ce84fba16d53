package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/shared"
)

type ProgressHandler struct {
	progress     ProgressTracker
	entitlements EntitlementChecker

	allowAnonTracking bool
}

func NewProgressHandler(progress ProgressTracker, entitlements EntitlementChecker, allowAnonTracking bool) *ProgressHandler {
	return &ProgressHandler{
		progress:          progress,
		entitlements:      entitlements,
		allowAnonTracking: allowAnonTracking,
	}
}

// ApplyProgress godoc
// @Summary Apply a batch of progress events
// @Description Folds up to 100 client events into the caller's progress; anonymous pings are event-logged only.
// @Tags progress
// @Accept json
// @Produce json
// @Param request body dto.ApplyProgressRequest true "Event batch"
// @Success 204
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 403 {object} shared.Response
// @Router /api/v1/me/progress [patch]
// @Security BearerAuth
func (h *ProgressHandler) ApplyProgress(c *fiber.Ctx) error {
	var req dto.ApplyProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	userID, _ := c.Locals(shared.UserID).(string)
	if userID == "" {
		if !h.allowAnonTracking {
			return shared.ResponseJSON(c, fiber.StatusUnauthorized, "Unauthorized", nil)
		}
		if err := h.progress.RecordAnonymousPings(req.Events); err != nil {
			return err
		}
		return shared.ResponseNoContent(c)
	}

	if err := h.progress.ApplyEvents(userID, req.Events); err != nil {
		return err
	}
	return shared.ResponseNoContent(c)
}

// GetCourseItems godoc
// @Summary Course modules with unlock and progress state
// @Tags progress
// @Produce json
// @Param course_id query string true "Course id"
// @Success 200 {object} shared.Response{data=dto.CourseItemsResponse}
// @Failure 403 {object} shared.Response
// @Failure 404 {object} shared.Response
// @Router /api/v1/me/items [get]
// @Security BearerAuth
func (h *ProgressHandler) GetCourseItems(c *fiber.Ctx) error {
	courseID := c.Query("course_id")
	if courseID == "" {
		return shared.NewBadRequestError(nil, "course_id is required")
	}
	userID, _ := c.Locals(shared.UserID).(string)

	ok, err := h.entitlements.HasCourseAccess(userID, courseID, time.Now().UTC())
	if err != nil {
		return shared.NewInternalError(err, "entitlement check failed")
	}
	if !ok {
		return shared.NewForbiddenError(nil, "no active entitlement for course")
	}

	view, err := h.progress.CourseView(userID, courseID)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, view)
}
