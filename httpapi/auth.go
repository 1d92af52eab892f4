package httpapi

import (
	"net/http"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/middleware"
)

type tokenResponse struct {
	Message string `json:"message,omitempty"`
	*goEnroll.TokenPair
	Role goEnroll.Role `json:"role"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req goEnroll.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, user, err := h.engine.Register(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{
		Message:   "User registered successfully!",
		TokenPair: pair,
		Role:      user.Role,
	})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	pair, err := h.engine.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.writeTokens(w, r, pair)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := refreshTokenFrom(w, r)
	if !ok {
		return
	}

	pair, err := h.engine.Refresh(r.Context(), refreshToken)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.writeTokens(w, r, pair)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := refreshTokenFrom(w, r)
	if !ok {
		return
	}

	if err := h.engine.Logout(r.Context(), refreshToken); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	user, err := h.engine.Profile(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) myClasses(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	enrollments, err := h.engine.MyEnrollments(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollments)
}

func (h *handlers) myCourses(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	courses, err := h.engine.MyCourses(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *handlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	if err := h.engine.DeleteAccount(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

// writeTokens answers with pair and the role carried by its access token.
func (h *handlers) writeTokens(w http.ResponseWriter, r *http.Request, pair *goEnroll.TokenPair) {
	id, err := h.engine.Authenticate(r.Context(), pair.AccessToken)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{TokenPair: pair, Role: id.Role})
}

// refreshTokenFrom reads the refresh token from a JSON body, falling back to
// the Authorization header.
func refreshTokenFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.ContentLength > 0 {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if !decodeJSON(w, r, &body) {
			return "", false
		}
		if body.RefreshToken != "" {
			return body.RefreshToken, true
		}
	}

	if t, ok := middleware.BearerToken(r.Header.Get("Authorization")); ok {
		return t, true
	}
	writeError(w, http.StatusUnauthorized, "missing refresh token")
	return "", false
}
