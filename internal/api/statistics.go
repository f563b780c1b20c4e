package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/store"
)

// StatisticsHandler serves registry-wide counts.
type StatisticsHandler struct {
	DB *sql.DB
}

// Get handles GET /api/statistics.
func (h *StatisticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetStatistics(r.Context(), h.DB)
	if err != nil {
		writeError(w, "statistics", err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
