package api

import (
	"net/http"

	"github.com/lectern/lectern/internal/log"
)

type coursesHandler struct {
	assistant Assistant
	logger    log.Logger
}

// CoursesResponse is the GET /api/courses reply.
type CoursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

func (h *coursesHandler) list(w http.ResponseWriter, r *http.Request) {
	count, titles, err := h.assistant.Analytics(r.Context())
	if err != nil {
		h.logger.Error("catalog lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "catalog_failed", "failed to read the course catalog", h.logger)
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, CoursesResponse{
		TotalCourses: count,
		CourseTitles: titles,
	}, h.logger)
}
