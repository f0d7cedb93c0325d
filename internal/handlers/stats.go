package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/subtrack/internal/auth"
	"github.com/diewo77/subtrack/internal/dates"
	"github.com/diewo77/subtrack/internal/httpx"
	"github.com/diewo77/subtrack/internal/models"
	"github.com/diewo77/subtrack/internal/services"
)

type StatsHandler struct {
	DB  *gorm.DB
	Svc *services.StatsService
}

func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{DB: db, Svc: services.NewStatsService()}
}

func (h *StatsHandler) collection(r *http.Request) ([]models.Client, error) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var clients []models.Client
	err := h.DB.Where("user_id = ?", uid).Find(&clients).Error
	return clients, err
}

// Stats: GET /stats — the dashboard summary cards. Records skipped for
// validation reasons are enumerated rather than silently folded in.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	clients, err := h.collection(r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_clients", nil)
		return
	}
	stats, skipped := h.Svc.ComputeStats(clients, dates.Today())
	payload := map[string]any{"stats": stats}
	if len(skipped) > 0 {
		payload["skipped"] = skipped
	}
	httpx.JSON(w, http.StatusOK, payload)
}

// Counts: GET /stats/counts — per-status tab counters.
func (h *StatsHandler) Counts(w http.ResponseWriter, r *http.Request) {
	clients, err := h.collection(r)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_clients", nil)
		return
	}
	counts, skipped := h.Svc.ComputeStatusCounts(clients, dates.Today())
	payload := map[string]any{"counts": counts}
	if len(skipped) > 0 {
		payload["skipped"] = skipped
	}
	httpx.JSON(w, http.StatusOK, payload)
}
