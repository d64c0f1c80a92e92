package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
)

// HealthHandler serves the liveness/readiness/metrics trio. The router
// wires /healthz and /readyz outside rate limiting and auth, and /metrics
// too unless metrics auth is required (then it is rate limited and
// authenticated).
type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz reports process liveness: if the handler can run, the process is
// alive. It never touches a dependency.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether the service can currently serve traffic: the
// database connection must answer a ping.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(r.Context()) != nil {
		logging.Warn("readyz: database ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Metrics exposes the Prometheus registry in text exposition format.
func Metrics() http.Handler {
	return promhttp.Handler()
}
