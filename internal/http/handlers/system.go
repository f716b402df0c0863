package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

type Dependency struct {
	Name   string
	Pinger Pinger
}

type System struct {
	deps    []Dependency
	log     Logger
	doc     *openapi3.T
	timeout time.Duration
}

func NewSystem(log Logger, doc *openapi3.T, deps ...Dependency) *System {
	return &System{deps: deps, log: log, doc: doc, timeout: 2 * time.Second}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Health pings every dependency. The submission guard is the only one today and is
// absent when the service runs with the in-memory guard.
func (h *System) Health(ctx *gin.Context) {
	resp := healthResponse{
		Status:       "ok",
		Timestamp:    time.Now().UTC(),
		Dependencies: map[string]dependencyStatus{},
	}
	code := http.StatusOK

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	for _, d := range h.deps {
		if err := d.Pinger.Ping(pingCtx); err != nil {
			resp.Status = "degraded"
			resp.Dependencies[d.Name] = dependencyStatus{Status: "down", Error: err.Error()}
			code = http.StatusServiceUnavailable
			h.log.Error(ctx.Request.Context(), "health check failed", "component", d.Name, "error", err)
			continue
		}
		resp.Dependencies[d.Name] = dependencyStatus{Status: "ok"}
	}

	ctx.JSON(code, resp)
}

func (h *System) OpenAPI(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.doc)
}
