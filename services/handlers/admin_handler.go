package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skilltrail/academy_api/shared"
)

type AdminHandler struct {
	events EventQuerier
}

func NewAdminHandler(events EventQuerier) *AdminHandler {
	return &AdminHandler{events: events}
}

// ListEvents godoc
// @Summary Query the event log
// @Description Newest first; topic filters, limit caps at 500.
// @Tags admin
// @Produce json
// @Param topic query string false "Topic filter"
// @Param limit query int false "Row cap" default(100)
// @Success 200 {object} shared.Response{data=[]model.EventLog}
// @Failure 403 {object} shared.Response
// @Router /api/v1/admin/events [get]
// @Security BearerAuth
func (h *AdminHandler) ListEvents(c *fiber.Ctx) error {
	events, err := h.events.ListByTopic(c.Query("topic"), c.QueryInt("limit"))
	if err != nil {
		return shared.NewInternalError(err, "failed to query event log")
	}
	return shared.ResponseOK(c, events)
}
