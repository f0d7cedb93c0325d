package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/subtrack/internal/auth"
	"github.com/diewo77/subtrack/internal/handlers"
	"github.com/diewo77/subtrack/internal/httpx"
	"github.com/diewo77/subtrack/internal/models"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth double-checks that the session's user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	// Client endpoints. List/Create via /clients; the mutations get their own
	// paths for simplicity.
	ch := handlers.NewClientHandler(db)
	mux.Handle("/clients", protected(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ch.List(w, r)
		case http.MethodPost:
			ch.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})))
	mux.Handle("/clients/update", protected(requirePost(ch.Update)))
	mux.Handle("/clients/delete", protected(requirePost(ch.Delete)))
	mux.Handle("/clients/renew", protected(requirePost(ch.Renew)))

	// Aggregates
	sh := handlers.NewStatsHandler(db)
	mux.Handle("/stats", protected(requireGet(sh.Stats)))
	mux.Handle("/stats/counts", protected(requireGet(sh.Counts)))

	ah := handlers.NewAnalyticsHandler(db)
	mux.Handle("/analytics", protected(requireGet(ah.Monthly)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Subtrack API"))
	})

	return withRecover(withLogging(mux))
}

func protected(next http.Handler) http.Handler {
	return auth.Middleware(auth.RequireAuth(next))
}

func requirePost(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		h(w, r)
	})
}

func requireGet(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		h(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
