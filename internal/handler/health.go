package handler

import (
	"net/http"
	"time"

	"github.com/wemet/relay-server-go/internal/metrics"
)

type HealthHandler struct {
	snapshot func() metrics.Snapshot
}

func NewHealthHandler(snapshot func() metrics.Snapshot) *HealthHandler {
	return &HealthHandler{snapshot: snapshot}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"connections": snap.Connections,
		"waiting":     snap.Waiting,
		"paired":      snap.Paired,
	})
}
