package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/beijibiao/signstudio/internal/service"
	"github.com/beijibiao/signstudio/internal/session"
)

type contextKey string

const identityKey contextKey = "identity"

// Server exposes the generation session controller as a JSON API plus a
// basic-auth operator surface.
type Server struct {
	addr        string
	adminUser   string
	adminPass   string
	log         *slog.Logger
	sessions    *session.Manager
	auth        *service.AuthService
	ledger      *service.LedgerService
	redemptions *service.RedemptionService
	generator   *service.GenerationService
	feedback    *service.FeedbackService
	router      *chi.Mux
}

func NewServer(addr, adminUser, adminPass string, log *slog.Logger, sessions *session.Manager, auth *service.AuthService, ledger *service.LedgerService, redemptions *service.RedemptionService, generator *service.GenerationService, feedback *service.FeedbackService) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:        addr,
		adminUser:   adminUser,
		adminPass:   adminPass,
		log:         log,
		sessions:    sessions,
		auth:        auth,
		ledger:      ledger,
		redemptions: redemptions,
		generator:   generator,
		feedback:    feedback,
		router:      r,
	}

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/login", s.handleLogin)
	r.Post("/api/feedback", s.handleFeedback)
	r.Group(func(authed chi.Router) {
		authed.Use(s.sessionMiddleware)
		authed.Post("/api/logout", s.handleLogout)
		authed.Get("/api/account", s.handleAccount)
		authed.Post("/api/redeem", s.handleRedeem)
		authed.Post("/api/generate", s.handleGenerate)
		authed.Get("/api/result", s.handleLastResult)
	})
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/admin/accounts", s.handleListAccounts)
		protected.Post("/admin/accounts/{phone}/credits", s.handleGrantCredits)
		protected.Get("/admin/redemptions", s.handleListRedemptions)
	})

	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("api shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// sessionMiddleware resolves the bearer token to a phone identity. Requests
// without a live session are rejected before any handler runs.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		identity, ok := s.sessions.Resolve(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(s.adminUser)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(s.adminPass)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="signstudio admin"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
}

func identityFrom(r *http.Request) string {
	identity, _ := r.Context().Value(identityKey).(string)
	return identity
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
