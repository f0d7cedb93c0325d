package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/subtrack/internal/auth"
	"github.com/diewo77/subtrack/internal/dates"
	"github.com/diewo77/subtrack/internal/models"
	"github.com/diewo77/subtrack/internal/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Client{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Email: "op@test", Password: "x", Username: "op"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return user
}

func authed(r *http.Request, uid uint) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), uid))
}

type listPayload struct {
	Items []struct {
		models.Client
		DaysUntilRenewal int    `json:"daysUntilRenewal"`
		Status           string `json:"status"`
	} `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func TestClientCreateAndList(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)

	body := `{"name":"Maria","phone":"11955501234","startDate":"2024-03-15","renewalDate":"2099-04-20","price":35,"devices":2,"server":"fast-01","macAddress":"AA:BB:CC:DD:EE:FF"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(body)), user.ID)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	req2 := authed(httptest.NewRequest(http.MethodGet, "/clients", nil), user.ID)
	w2 := httptest.NewRecorder()
	h.List(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w2.Code)
	}
	var payload listPayload
	if err := json.Unmarshal(w2.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Items) != 1 || payload.Total != 1 {
		t.Fatalf("expected 1 client, got %+v", payload)
	}
	got := payload.Items[0]
	if got.Name != "Maria" || got.ID == "" {
		t.Fatalf("unexpected item: %+v", got)
	}
	if got.Status != string(services.StatusActive) {
		t.Fatalf("renewal far in the future must classify active, got %s", got.Status)
	}
}

func TestClientCreateDefaultsDates(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)

	req := authed(httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"name":"Ana","phone":"1190000","price":30}`)), user.ID)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var c models.Client
	if err := db.First(&c).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	today := dates.Today()
	if c.StartDate != today.String() {
		t.Fatalf("start date must default to today: %s", c.StartDate)
	}
	if c.RenewalDate != today.AddDays(30).String() {
		t.Fatalf("renewal must default to start+30: %s", c.RenewalDate)
	}
	if c.Devices != 1 {
		t.Fatalf("devices must default to 1: %d", c.Devices)
	}
}

func TestClientCreateRejectsInvalidRecord(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)

	cases := []string{
		`{"phone":"119","startDate":"2024-03-15","renewalDate":"2024-04-20","price":35}`,              // missing name
		`{"name":"X","phone":"119","startDate":"2024-02-30","renewalDate":"2024-04-20","price":35}`,   // bad date
		`{"name":"X","phone":"119","startDate":"2024-03-15","renewalDate":"2024-04-20","price":-5}`,   // negative price
		`{"name":"X","phone":"119","startDate":"2024-03-15","renewalDate":"2024-04-20","price":35,"devices":-1}`, // bad devices
	}
	for _, body := range cases {
		req := authed(httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(body)), user.ID)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.Create(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400 got %d", body, w.Code)
		}
	}
	var count int64
	db.Model(&models.Client{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected records must not be stored, found %d", count)
	}
}

func seedClient(t *testing.T, db *gorm.DB, uid uint, id, name, phone, renewal string, price float64) {
	t.Helper()
	c := models.Client{ID: id, UserID: uid, Name: name, Phone: phone, StartDate: "2024-01-01", RenewalDate: renewal, Price: price, Devices: 1}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed client %s: %v", id, err)
	}
}

func TestClientListFiltersAndSorts(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)
	today := dates.Today()

	seedClient(t, db, user.ID, "a", "Alpha", "11955501234", today.AddDays(10).String(), 35)
	seedClient(t, db, user.ID, "b", "Beta", "11988887777", today.AddDays(2).String(), 40)
	seedClient(t, db, user.ID, "c", "Gamma", "21555333444", today.AddDays(-5).String(), 25)

	// phone substring search, most urgent first
	req := authed(httptest.NewRequest(http.MethodGet, "/clients?q=555", nil), user.ID)
	w := httptest.NewRecorder()
	h.List(w, req)
	var payload listPayload
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Total != 2 || payload.Items[0].ID != "c" || payload.Items[1].ID != "a" {
		t.Fatalf("query filter/order wrong: %+v", payload)
	}

	// status filter
	req2 := authed(httptest.NewRequest(http.MethodGet, "/clients?status=expiring", nil), user.ID)
	w2 := httptest.NewRecorder()
	h.List(w2, req2)
	var p2 listPayload
	if err := json.Unmarshal(w2.Body.Bytes(), &p2); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p2.Total != 1 || p2.Items[0].ID != "b" {
		t.Fatalf("status filter wrong: %+v", p2)
	}

	// bogus filter rejected
	req3 := authed(httptest.NewRequest(http.MethodGet, "/clients?status=bogus", nil), user.ID)
	w3 := httptest.NewRecorder()
	h.List(w3, req3)
	if w3.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bogus status, got %d", w3.Code)
	}
}

func TestClientListScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	other := models.User{Email: "other@test", Password: "x", Username: "other"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("other user: %v", err)
	}
	h := NewClientHandler(db)
	today := dates.Today()
	seedClient(t, db, user.ID, "mine", "Mine", "111", today.AddDays(5).String(), 30)
	seedClient(t, db, other.ID, "theirs", "Theirs", "222", today.AddDays(5).String(), 30)

	req := authed(httptest.NewRequest(http.MethodGet, "/clients", nil), user.ID)
	w := httptest.NewRecorder()
	h.List(w, req)
	var payload listPayload
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Total != 1 || payload.Items[0].ID != "mine" {
		t.Fatalf("cross-user leak: %+v", payload)
	}
}

func TestRenewStacksOnUnexpiredClient(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)
	today := dates.Today()
	renewal := today.AddDays(10)
	seedClient(t, db, user.ID, "c1", "Client", "111", renewal.String(), 35)

	req := authed(httptest.NewRequest(http.MethodPost, "/clients/renew?id=c1", nil), user.ID)
	w := httptest.NewRecorder()
	h.Renew(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var c models.Client
	if err := db.First(&c, "id = ?", "c1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := renewal.AddDays(30).String(); c.RenewalDate != want {
		t.Fatalf("renewal must stack on remaining validity: got %s want %s", c.RenewalDate, want)
	}
}

func TestRenewRestartsFromTodayWhenExpired(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)
	today := dates.Today()
	seedClient(t, db, user.ID, "c1", "Client", "111", today.AddDays(-20).String(), 35)

	req := authed(httptest.NewRequest(http.MethodPost, "/clients/renew?id=c1", nil), user.ID)
	w := httptest.NewRecorder()
	h.Renew(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var c models.Client
	db.First(&c, "id = ?", "c1")
	if want := today.AddDays(30).String(); c.RenewalDate != want {
		t.Fatalf("expired client must restart from today: got %s want %s", c.RenewalDate, want)
	}
}

func TestRenewLeavesRowAloneOnBadStoredDate(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)
	// bypass Validate to simulate a legacy row with a broken date
	c := models.Client{ID: "c1", UserID: user.ID, Name: "Legacy", Phone: "111", StartDate: "2024-01-01", RenewalDate: "31/12/2024", Price: 35, Devices: 1}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := authed(httptest.NewRequest(http.MethodPost, "/clients/renew?id=c1", nil), user.ID)
	w := httptest.NewRecorder()
	h.Renew(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	var reloaded models.Client
	db.First(&reloaded, "id = ?", "c1")
	if reloaded.RenewalDate != "31/12/2024" {
		t.Fatalf("failed renew must not mutate the row: %s", reloaded.RenewalDate)
	}
}

func TestRenewUnknownClient(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)
	req := authed(httptest.NewRequest(http.MethodPost, "/clients/renew?id=nope", nil), user.ID)
	w := httptest.NewRecorder()
	h.Renew(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestClientUpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	user := seedUser(t, db)
	h := NewClientHandler(db)
	today := dates.Today()
	seedClient(t, db, user.ID, "c1", "Before", "111", today.AddDays(5).String(), 35)

	req := authed(httptest.NewRequest(http.MethodPost, "/clients/update?id=c1", strings.NewReader(`{"name":"After","price":50}`)), user.ID)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var c models.Client
	db.First(&c, "id = ?", "c1")
	if c.Name != "After" || c.Price != 50 {
		t.Fatalf("update not applied: %+v", c)
	}

	// invalid edit is rejected without touching the row
	req2 := authed(httptest.NewRequest(http.MethodPost, "/clients/update?id=c1", strings.NewReader(`{"renewalDate":"2024-13-01"}`)), user.ID)
	req2.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	h.Update(w2, req2)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w2.Code)
	}

	req3 := authed(httptest.NewRequest(http.MethodPost, "/clients/delete?id=c1", nil), user.ID)
	w3 := httptest.NewRecorder()
	h.Delete(w3, req3)
	if w3.Code != http.StatusOK {
		t.Fatalf("delete: expected 200 got %d", w3.Code)
	}
	var count int64
	db.Model(&models.Client{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected empty table, got %d", count)
	}
}
