package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/shared"
)

type CatalogHandler struct {
	catalog CatalogSource
}

func NewCatalogHandler(catalog CatalogSource) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// GetCatalog godoc
// @Summary List the active catalog
// @Description Active courses with module/item counts plus tracks and their course order.
// @Tags catalog
// @Produce json
// @Success 200 {object} shared.Response{data=dto.CatalogResponse}
// @Router /api/v1/catalog [get]
func (h *CatalogHandler) GetCatalog(c *fiber.Ctx) error {
	courses, err := h.catalog.ListActiveCourses()
	if err != nil {
		return shared.NewInternalError(err, "failed to load catalog")
	}
	tracks, err := h.catalog.ListActiveTracks()
	if err != nil {
		return shared.NewInternalError(err, "failed to load catalog")
	}

	resp := dto.CatalogResponse{
		Courses: make([]dto.CourseSummary, 0, len(courses)),
		Tracks:  make([]dto.TrackSummary, 0, len(tracks)),
	}

	for i := range courses {
		course := &courses[i]
		itemCount := 0
		for j := range course.Modules {
			itemCount += len(course.Modules[j].Items)
		}
		resp.Courses = append(resp.Courses, dto.CourseSummary{
			ID:          course.ID,
			Slug:        course.Slug,
			Title:       course.Title,
			Description: course.Description,
			ModuleCount: len(course.Modules),
			ItemCount:   itemCount,
		})
	}

	for i := range tracks {
		track := &tracks[i]
		links, err := h.catalog.ListTrackCourses(track.ID)
		if err != nil {
			return shared.NewInternalError(err, "failed to load catalog")
		}
		courseIDs := make([]string, 0, len(links))
		for _, link := range links {
			courseIDs = append(courseIDs, link.CourseID)
		}
		resp.Tracks = append(resp.Tracks, dto.TrackSummary{
			ID:          track.ID,
			Slug:        track.Slug,
			Title:       track.Title,
			Description: track.Description,
			CourseIDs:   courseIDs,
		})
	}

	return shared.ResponseOK(c, resp)
}
