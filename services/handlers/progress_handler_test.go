package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/shared"
)

type stubTracker struct {
	applied int
	pings   int
}

func (s *stubTracker) ApplyEvents(userID string, events []dto.ProgressEventRequest) error {
	s.applied += len(events)
	return nil
}

func (s *stubTracker) RecordAnonymousPings(events []dto.ProgressEventRequest) error {
	s.pings += len(events)
	return nil
}

func (s *stubTracker) CourseView(userID, courseID string) (*dto.CourseItemsResponse, error) {
	return &dto.CourseItemsResponse{CourseID: courseID}, nil
}

type stubChecker bool

func (s stubChecker) HasCourseAccess(userID, courseID string, t time.Time) (bool, error) {
	return bool(s), nil
}

func newProgressApp(tracker *stubTracker, allowAnon bool, userID string) *fiber.App {
	app := fiber.New()
	h := NewProgressHandler(tracker, stubChecker(true), allowAnon)
	app.Patch("/me/progress", func(c *fiber.Ctx) error {
		if userID != "" {
			c.Locals(shared.UserID, userID)
		}
		return c.Next()
	}, h.ApplyProgress)
	return app
}

func patchProgress(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()

	body := `{"events":[{"type":"heartbeat","item_id":"i1","delta_secs":30}]}`
	req := httptest.NewRequest(fiber.MethodPatch, "/me/progress", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestApplyProgressReturnsNoContent(t *testing.T) {
	tracker := &stubTracker{}
	app := newProgressApp(tracker, false, "u1")

	resp := patchProgress(t, app)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, tracker.applied)
	assert.Zero(t, tracker.pings)
}

func TestApplyProgressAnonymousPingReturnsNoContent(t *testing.T) {
	tracker := &stubTracker{}
	app := newProgressApp(tracker, true, "")

	resp := patchProgress(t, app)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, tracker.pings)
	assert.Zero(t, tracker.applied, "anonymous events stay out of the ledger")
}

func TestApplyProgressAnonymousRejectedWhenDisabled(t *testing.T) {
	tracker := &stubTracker{}
	app := newProgressApp(tracker, false, "")

	resp := patchProgress(t, app)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, tracker.applied)
	assert.Zero(t, tracker.pings)
}
