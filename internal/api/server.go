// Package api exposes the marketplace over HTTP: auth, catalog, orders,
// payment settings, and signed downloads.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sriramlenka/notekart/internal/auth"
	"github.com/sriramlenka/notekart/internal/config"
	"github.com/sriramlenka/notekart/internal/model"
	"github.com/sriramlenka/notekart/internal/orders"
	"github.com/sriramlenka/notekart/internal/repository"
	"github.com/sriramlenka/notekart/internal/s3storage"
	"github.com/sriramlenka/notekart/internal/settings"
	"github.com/sriramlenka/notekart/internal/signing"
)

const sessionCookie = "notekart_session"

// Server hosts the HTTP handlers.
type Server struct {
	cfg      *config.Config
	users    *repository.UserRepository
	notes    *repository.NoteRepository
	engine   *orders.Engine
	settings *settings.Service
	store    *s3storage.Storage
	sessions *auth.SessionStore
	signer   *signing.Signer
	queue    *asynq.Client
	server   *http.Server
	once     sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, users *repository.UserRepository, notes *repository.NoteRepository,
	engine *orders.Engine, settingsSvc *settings.Service, store *s3storage.Storage,
	sessions *auth.SessionStore, signer *signing.Signer, queueClient *asynq.Client) *Server {
	return &Server{
		cfg:      cfg,
		users:    users,
		notes:    notes,
		engine:   engine,
		settings: settingsSvc,
		store:    store,
		sessions: sessions,
		signer:   signer,
		queue:    queueClient,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", s.handleHealth)
		mux.HandleFunc("/api/auth/register", s.handleRegister)
		mux.HandleFunc("/api/auth/login", s.handleLogin)
		mux.HandleFunc("/api/auth/logout", s.handleLogout)
		mux.HandleFunc("/api/notes", s.handleNotes)
		mux.HandleFunc("/api/notes/", s.handleNoteRoute)
		mux.HandleFunc("/api/download", s.handleDownload)
		mux.HandleFunc("/api/orders", s.handleOrders)
		mux.HandleFunc("/api/orders/my", s.handleMyOrders)
		mux.HandleFunc("/api/orders/", s.handleOrderRoute)
		mux.HandleFunc("/api/settings/payment", s.handleSettings)
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: corsMiddleware(loggingMiddleware(mux)),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// currentUser resolves the session cookie to a full user record. The second
// return is false when the request is unauthenticated.
func (s *Server) currentUser(r *http.Request) (*model.User, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	userID, ok := s.sessions.Get(cookie.Value)
	if !ok {
		return nil, false
	}
	user, err := s.users.Get(r.Context(), userID)
	if err != nil {
		return nil, false
	}
	return user, true
}

// requireUser writes a 401 and returns false when unauthenticated.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := s.currentUser(r)
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "login required")
		return nil, false
	}
	return user, true
}

// requireAdmin writes a 401/403 and returns false unless the caller is an
// authenticated admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return nil, false
	}
	if !user.IsAdmin() {
		respondMessage(w, http.StatusForbidden, "admin access required")
		return nil, false
	}
	return user, true
}

// respondDomainError maps engine and settings errors onto HTTP statuses.
// Unknown errors are logged and hidden behind a generic message.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrNoteNotFound), errors.Is(err, orders.ErrOrderNotFound):
		respondMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrAlreadyOwned),
		errors.Is(err, orders.ErrAlreadyPending),
		errors.Is(err, orders.ErrProofRequired),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, settings.ErrInvalidMode):
		respondMessage(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
