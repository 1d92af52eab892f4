package httpapi

import (
	"net/http"

	"github.com/MrEthical07/goEnroll/middleware"
)

func (h *handlers) joinClass(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "class_id")
	if !ok {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	cs, err := h.engine.JoinClass(r.Context(), id, classID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Joined class successfully",
		"class":   cs,
	})
}

func (h *handlers) leaveClass(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "class_id")
	if !ok {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	cs, err := h.engine.LeaveClass(r.Context(), id, classID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Left class successfully",
		"class":   cs,
	})
}

func (h *handlers) members(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathID(w, r, "class_id")
	if !ok {
		return
	}
	id, _ := middleware.IdentityFromContext(r.Context())
	users, err := h.engine.ListMembers(r.Context(), id, classID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
