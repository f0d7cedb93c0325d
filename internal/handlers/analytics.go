package handlers

import (
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/subtrack/internal/auth"
	"github.com/diewo77/subtrack/internal/dates"
	"github.com/diewo77/subtrack/internal/httpx"
	"github.com/diewo77/subtrack/internal/models"
	"github.com/diewo77/subtrack/internal/services"
)

type AnalyticsHandler struct {
	DB  *gorm.DB
	Svc *services.AnalyticsService
}

func NewAnalyticsHandler(db *gorm.DB) *AnalyticsHandler {
	return &AnalyticsHandler{DB: db, Svc: services.NewAnalyticsService()}
}

// Monthly: GET /analytics?months=6|12 — the reconstructed month-by-month
// ledger, oldest bucket first.
func (h *AnalyticsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	months := 12
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (n != 6 && n != 12) {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_months", map[string]string{"months": "must_be_6_or_12"})
			return
		}
		months = n
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	var clients []models.Client
	if err := h.DB.Where("user_id = ?", uid).Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_clients", nil)
		return
	}
	buckets := h.Svc.MonthlyBuckets(clients, months, dates.Today())
	httpx.JSON(w, http.StatusOK, map[string]any{"months": buckets})
}
