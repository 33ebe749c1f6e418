package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/allowlist"
	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/ports"
)

// DefaultCookieName is the session cookie used when none is configured
const DefaultCookieName = "inbox_session"

// BatchProcessor runs one classification batch for a user
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, userID string, source core.MessageSource, maxMessages int) (*core.BatchResult, error)
	MaxMessages() int
}

// UsageReporter exposes the quota view used by the usage route
type UsageReporter interface {
	Summary(ctx context.Context, userID string) (*core.UsageSummary, error)
	DailyLimit() int
}

// Dependencies groups the collaborators the routes call into
type Dependencies struct {
	Batch      BatchProcessor
	Usage      UsageReporter
	Classifier core.EmailClassifier
	Sessions   ports.SessionStore
	Auth       ports.Authenticator
	Cipher     ports.TokenCipher
	Sources    ports.MessageSourceProvider
	Origins    *allowlist.Checker
	// Metrics is mounted at /metrics when set
	Metrics http.Handler
	Logger  *zap.Logger
}

// Options configures the HTTP surface
type Options struct {
	FrontendURL    string
	CookieName     string
	CookieSecure   bool
	Debug          bool
	RequestTimeout time.Duration
	SessionTTL     time.Duration

	LLMConfigured        bool
	EncryptionConfigured bool
}

// Server holds the routes of the inbox classifier API
type Server struct {
	deps   Dependencies
	opts   Options
	logger *zap.Logger
	router *mux.Router
}

// NewServer creates a new API server
func NewServer(deps Dependencies, opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: logger,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.requestLogger)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/auth/google", s.handleAuthStart).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", s.handleAuthCallback).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/user/status", s.handleUserStatus).Methods(http.MethodGet)
	api.HandleFunc("/user/usage", s.handleUserUsage).Methods(http.MethodGet)
	api.HandleFunc("/emails/classify", s.handleClassify).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	if s.opts.Debug {
		r.HandleFunc("/debug/session", s.handleDebugSession).Methods(http.MethodGet)
		r.HandleFunc("/debug/test-classifier", s.handleTestClassifier).Methods(http.MethodPost)
	}

	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics).Methods(http.MethodGet)
	}
}

// Handler returns the router wrapped in the CORS middleware
func (s *Server) Handler() http.Handler {
	return s.cors(s.router)
}
