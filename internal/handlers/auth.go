package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/subtrack/internal/auth"
	"github.com/diewo77/subtrack/internal/httpx"
	"github.com/diewo77/subtrack/internal/models"
)

type AuthHandler struct{ DB *gorm.DB }

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/signup", h.signup)
	mux.HandleFunc("/login", h.login)
	mux.HandleFunc("/logout", h.logout)
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func decodeCredentials(r *http.Request) (credentialsReq, bool) {
	var req credentialsReq
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, false
		}
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
		req.Username = r.FormValue("username")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	return req, true
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	req, ok := decodeCredentials(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"email": "required", "password": "required"})
		return
	}
	if req.Username == "" {
		// same convention as the original dashboard: derive from the email
		req.Username = strings.SplitN(req.Email, "@", 2)[0]
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "hash_failed", nil)
		return
	}
	user := models.User{Email: req.Email, Password: string(hash), Username: req.Username}
	if err := h.DB.Create(&user).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			httpx.JSONError(w, http.StatusConflict, "email_already_registered", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "signup_failed", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	req, ok := decodeCredentials(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
