package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Service is the engine surface the handlers call. *authcore.Engine
// implements it.
type Service interface {
	Register(ctx context.Context, email, password string) (*authcore.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*authcore.LoginResult, error)
	ValidateOTP(ctx context.Context, userID, code string) (*authcore.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*authcore.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	SendConfirmationEmail(ctx context.Context, userID string) error
	ConfirmEmail(ctx context.Context, userID, token string) error
	IsEmailAvailable(ctx context.Context, email string) (bool, error)
	ValidateAccessToken(ctx context.Context, token string) (string, error)
	GetUser(ctx context.Context, userID string) (*authcore.UserProfile, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	UpdateEmail(ctx context.Context, userID, newEmail string) (*authcore.UserProfile, error)
	DeleteUser(ctx context.Context, userID string) error
}

// Config controls CORS and the refresh cookie.
type Config struct {
	AllowedOrigins []string
	CookieName     string
	CookiePath     string
	CookieSecure   bool
	RequestTimeout time.Duration
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

func (c Config) withDefaults() Config {
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.CookieName == "" {
		c.CookieName = "refreshToken"
	}
	if c.CookiePath == "" {
		c.CookiePath = "/auth"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	return c
}

type handler struct {
	svc Service
	cfg Config
	log *zap.Logger
}

// NewRouter builds the HTTP surface for svc.
func NewRouter(svc Service, cfg Config, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	h := &handler{svc: svc, cfg: cfg, log: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !containsWildcard(cfg.AllowedOrigins),
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/auth", func(a chi.Router) {
		a.Post("/register", h.register)
		a.Post("/login", h.login)
		a.Post("/otp/validate", h.validateOTP)
		a.Post("/refresh", h.refresh)
		a.Post("/logout", h.logout)
		a.Post("/email/confirmation", h.sendConfirmation)
		a.Post("/email/confirm", h.confirmEmail)
		a.Get("/email/confirm", h.confirmEmailLink)
		a.Get("/email/availability", h.emailAvailability)
	})

	r.Route("/users/me", func(u chi.Router) {
		u.Use(middleware.RequireAccess(svc))
		u.Get("/", h.me)
		u.Put("/email", h.updateEmail)
		u.Put("/password", h.changePassword)
		u.Delete("/", h.deleteMe)
	})

	return r
}

func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
