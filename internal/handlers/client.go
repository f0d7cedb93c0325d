package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/subtrack/internal/auth"
	"github.com/diewo77/subtrack/internal/dates"
	"github.com/diewo77/subtrack/internal/httpx"
	"github.com/diewo77/subtrack/internal/models"
	"github.com/diewo77/subtrack/internal/services"
)

// ClientHandler owns the CRUD + renew surface over the client collection.
// All reads feed the pure services; the handler only does I/O and scoping.
type ClientHandler struct {
	DB      *gorm.DB
	Stats   *services.StatsService
	Renewal *services.RenewalService
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{DB: db, Stats: services.NewStatsService(), Renewal: services.NewRenewalService()}
}

// clientView decorates a client with its derived per-request state.
type clientView struct {
	models.Client
	DaysUntilRenewal int             `json:"daysUntilRenewal"`
	Status           services.Status `json:"status"`
}

func viewOf(c models.Client, today dates.Date) clientView {
	days, err := c.DaysUntilRenewal(today)
	if err != nil {
		// only reachable for stored records predating date validation
		return clientView{Client: c, Status: services.StatusExpired}
	}
	return clientView{Client: c, DaysUntilRenewal: days, Status: services.Classify(days)}
}

func (h *ClientHandler) loadCollection(uid uint) ([]models.Client, error) {
	var clients []models.Client
	// creation order is the tie-break order for equal day-offsets
	err := h.DB.Where("user_id = ?", uid).Order("created_at asc, id asc").Find(&clients).Error
	return clients, err
}

// List: GET /clients?q=&status=&limit=&page=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	statusFilter, ok := services.ParseStatus(r.URL.Query().Get("status"))
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status_filter", nil)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	clients, err := h.loadCollection(uid)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	today := dates.Today()
	filtered := h.Stats.FilterAndSort(clients, r.URL.Query().Get("q"), statusFilter, today)
	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	items := make([]clientView, 0, end-offset)
	for _, c := range filtered[offset:end] {
		items = append(items, viewOf(c, today))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

type clientReq struct {
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	StartDate      string  `json:"startDate"`
	RenewalDate    string  `json:"renewalDate"`
	Price          float64 `json:"price"`
	Devices        int     `json:"devices"`
	Notes          string  `json:"notes"`
	Server         string  `json:"server"`
	MACAddress     string  `json:"macAddress"`
	DevicePassword string  `json:"devicePassword"`
}

func decodeClientReq(r *http.Request) (clientReq, bool) {
	var req clientReq
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false
		}
		return req, true
	}
	if err := r.ParseForm(); err != nil {
		return req, false
	}
	req.Name = r.FormValue("name")
	req.Phone = r.FormValue("phone")
	req.StartDate = r.FormValue("start_date")
	req.RenewalDate = r.FormValue("renewal_date")
	if v := r.FormValue("price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			req.Price = f
		}
	}
	if v := r.FormValue("devices"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Devices = n
		}
	}
	req.Notes = r.FormValue("notes")
	req.Server = r.FormValue("server")
	req.MACAddress = r.FormValue("mac_address")
	req.DevicePassword = r.FormValue("device_password")
	return req, true
}

// Create: POST /clients. An omitted start date defaults to today and an
// omitted renewal date to one cycle after the start, matching the new-client
// form of the dashboard.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	req, ok := decodeClientReq(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	today := dates.Today()
	if strings.TrimSpace(req.StartDate) == "" {
		req.StartDate = today.String()
	}
	if strings.TrimSpace(req.RenewalDate) == "" {
		if start, err := dates.Parse(req.StartDate); err == nil {
			req.RenewalDate = start.AddDays(services.CycleDays).String()
		}
	}
	if req.Devices == 0 {
		req.Devices = 1
	}
	c := models.Client{
		ID:             uuid.NewString(),
		UserID:         uid,
		Name:           strings.TrimSpace(req.Name),
		Phone:          strings.TrimSpace(req.Phone),
		StartDate:      strings.TrimSpace(req.StartDate),
		RenewalDate:    strings.TrimSpace(req.RenewalDate),
		Price:          req.Price,
		Devices:        req.Devices,
		Notes:          req.Notes,
		Server:         req.Server,
		MACAddress:     req.MACAddress,
		DevicePassword: req.DevicePassword,
	}
	if v := c.Validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "client_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, viewOf(c, today))
}

// Update: POST /clients/update?id=... with a partial JSON body. The id and
// owner are immutable; edited dates are re-validated before anything is
// written.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := requestID(r)
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	var c models.Client
	if err := h.DB.Where("id = ? AND user_id = ?", id, uid).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_client", nil)
		return
	}
	var body struct {
		Name           *string  `json:"name"`
		Phone          *string  `json:"phone"`
		StartDate      *string  `json:"startDate"`
		RenewalDate    *string  `json:"renewalDate"`
		Price          *float64 `json:"price"`
		Devices        *int     `json:"devices"`
		Notes          *string  `json:"notes"`
		Server         *string  `json:"server"`
		MACAddress     *string  `json:"macAddress"`
		DevicePassword *string  `json:"devicePassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if body.Name != nil {
		c.Name = strings.TrimSpace(*body.Name)
	}
	if body.Phone != nil {
		c.Phone = strings.TrimSpace(*body.Phone)
	}
	if body.StartDate != nil {
		c.StartDate = strings.TrimSpace(*body.StartDate)
	}
	if body.RenewalDate != nil {
		c.RenewalDate = strings.TrimSpace(*body.RenewalDate)
	}
	if body.Price != nil {
		c.Price = *body.Price
	}
	if body.Devices != nil {
		c.Devices = *body.Devices
	}
	if body.Notes != nil {
		c.Notes = *body.Notes
	}
	if body.Server != nil {
		c.Server = *body.Server
	}
	if body.MACAddress != nil {
		c.MACAddress = *body.MACAddress
	}
	if body.DevicePassword != nil {
		c.DevicePassword = *body.DevicePassword
	}
	if v := c.Validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if err := h.DB.Save(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(c, dates.Today()))
}

// Delete: POST /clients/delete?id=...
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := requestID(r)
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	res := h.DB.Where("id = ? AND user_id = ?", id, uid).Delete(&models.Client{})
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// Renew: POST /clients/renew?id=... The read-modify-write of the renewal
// date runs inside one transaction; on any failure nothing is persisted and
// the caller re-reads the authoritative row.
func (h *ClientHandler) Renew(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := requestID(r)
	if id == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	today := dates.Today()
	var c models.Client
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, uid).First(&c).Error; err != nil {
			return err
		}
		if err := h.Renewal.Renew(&c, today); err != nil {
			return err
		}
		return tx.Save(&c).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		case errors.Is(err, dates.ErrInvalidDate):
			httpx.JSONError(w, http.StatusBadRequest, "invalid_date", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "renew_failed", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(c, today))
}

func requestID(r *http.Request) string {
	if id := r.URL.Query().Get("id"); id != "" {
		return id
	}
	return r.FormValue("id")
}
