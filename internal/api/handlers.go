package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/version"
)

// Handlers contains the HTTP handlers for the gateway: a health endpoint
// served locally and a reverse proxy for everything else.
type Handlers struct {
	proxy     *httputil.ReverseProxy
	startTime time.Time
}

// NewHandlers creates a handlers instance proxying to the given upstream.
func NewHandlers(upstream *url.URL, flushInterval time.Duration) *Handlers {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.FlushInterval = flushInterval
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("upstream proxy error", "error", err, "path", r.URL.Path)
		writeJSONResponse(w, http.StatusBadGateway,
			models.NewErrorResponse("Upstream unavailable", models.ErrorCodeUpstreamUnavailable))
	}

	return &Handlers{
		proxy:     proxy,
		startTime: time.Now(),
	}
}

// Proxy forwards the request to the upstream application server. The request
// only reaches this handler after the admission middleware allowed it.
func (h *Handlers) Proxy(w http.ResponseWriter, r *http.Request) {
	h.proxy.ServeHTTP(w, r)
}

// HealthCheck handles health probe requests.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = version.GetInfo().Version
	response.Uptime = time.Since(h.startTime).Round(time.Second).String()

	writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
