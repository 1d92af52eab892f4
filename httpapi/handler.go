package httpapi

import (
	"net/http"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/metrics/export/prometheus"
	"github.com/MrEthical07/goEnroll/middleware"
	"github.com/rs/cors"
)

// Options configures the handler returned by NewHandler.
type Options struct {
	// CORSOrigins lists the origins allowed to call /api. Empty allows all.
	CORSOrigins []string
	// ProtectMetrics restricts /metrics to admins.
	ProtectMetrics bool
}

// NewHandler returns the full HTTP surface for engine.
func NewHandler(engine *goEnroll.Engine, opts Options) http.Handler {
	h := &handlers{engine: engine}
	auth := middleware.Authenticate(engine)

	api := http.NewServeMux()

	api.HandleFunc("POST /api/auth/register", h.register)
	api.HandleFunc("POST /api/auth/login", h.login)
	api.HandleFunc("POST /api/auth/refresh", h.refresh)
	api.HandleFunc("POST /api/auth/logout", h.logout)
	api.Handle("GET /api/auth/me", auth(http.HandlerFunc(h.me)))
	api.Handle("GET /api/auth/my-classes", auth(http.HandlerFunc(h.myClasses)))
	api.Handle("GET /api/auth/my-courses", auth(http.HandlerFunc(h.myCourses)))
	api.Handle("DELETE /api/auth/delete-account", auth(http.HandlerFunc(h.deleteAccount)))

	api.HandleFunc("GET /api/courses/public", h.listCourses)
	api.Handle("POST /api/courses", auth(http.HandlerFunc(h.createCourse)))
	api.Handle("POST /api/courses/{$}", auth(http.HandlerFunc(h.createCourse)))
	api.HandleFunc("GET /api/courses/{course_id}", h.getCourse)
	api.Handle("PUT /api/courses/{course_id}", auth(http.HandlerFunc(h.updateCourse)))
	api.Handle("DELETE /api/courses/{course_id}", auth(http.HandlerFunc(h.deleteCourse)))
	api.Handle("POST /api/courses/{course_id}/classes", auth(http.HandlerFunc(h.createClass)))
	api.Handle("GET /api/courses/{course_id}/classes", auth(http.HandlerFunc(h.listClasses)))
	api.Handle("PUT /api/courses/{course_id}/classes/{class_id}", auth(http.HandlerFunc(h.updateClass)))
	api.Handle("DELETE /api/courses/{course_id}/classes/{class_id}", auth(http.HandlerFunc(h.deleteClass)))

	api.Handle("POST /api/classes/{class_id}/join", auth(http.HandlerFunc(h.joinClass)))
	api.Handle("POST /api/classes/{class_id}/leave", auth(http.HandlerFunc(h.leaveClass)))
	api.Handle("GET /api/classes/{class_id}/members", auth(http.HandlerFunc(h.members)))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	})

	root := http.NewServeMux()
	root.Handle("/api/", c.Handler(api))
	root.HandleFunc("GET /healthz", h.health)

	var metrics http.Handler = prometheus.NewPrometheusExporter(engine).Handler()
	if opts.ProtectMetrics {
		metrics = middleware.RequireAdmin(engine)(metrics)
	}
	root.Handle("GET /metrics", metrics)

	return middleware.RequestContext(root)
}

type handlers struct {
	engine *goEnroll.Engine
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
