package httpapi

import (
	"net/http"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/middleware"
)

func (h *handlers) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.engine.ListCourses(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *handlers) getCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}
	course, err := h.engine.GetCourse(r.Context(), courseID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *handlers) createCourse(w http.ResponseWriter, r *http.Request) {
	var in goEnroll.CourseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	course, err := h.engine.CreateCourse(r.Context(), id, in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *handlers) updateCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}
	var patch goEnroll.CoursePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	course, err := h.engine.UpdateCourse(r.Context(), id, courseID, patch)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *handlers) deleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	if err := h.engine.DeleteCourse(r.Context(), id, courseID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Course deleted successfully"})
}

func (h *handlers) listClasses(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	sessions, err := h.engine.ListClassSessions(r.Context(), id, courseID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *handlers) createClass(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}
	var in goEnroll.ClassSessionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	cs, err := h.engine.CreateClassSession(r.Context(), id, courseID, in)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cs)
}

func (h *handlers) updateClass(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}
	classID, ok := pathID(w, r, "class_id")
	if !ok {
		return
	}
	var patch goEnroll.ClassSessionPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	cs, err := h.engine.UpdateClassSession(r.Context(), id, courseID, classID, patch)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *handlers) deleteClass(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathID(w, r, "course_id")
	if !ok {
		return
	}
	classID, ok := pathID(w, r, "class_id")
	if !ok {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	if err := h.engine.DeleteClassSession(r.Context(), id, courseID, classID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Class deleted successfully"})
}
