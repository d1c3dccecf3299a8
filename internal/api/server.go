// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/service"
	"github.com/gorilla/mux"
)

// Service interfaces for dependency injection and testing

// AuthServiceInterface defines the interface for auth service operations
type AuthServiceInterface interface {
	Register(ctx context.Context, input service.RegisterInput) (*models.User, error)
	VerifyOTP(ctx context.Context, email, code string) error
	RequestOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
	VerifyAccessToken(ctx context.Context, tokenString string) (*service.Claims, error)
}

// TradeServiceInterface defines the interface for trade service operations
type TradeServiceInterface interface {
	OpenTrade(ctx context.Context, userID string, input service.OpenTradeInput) (*models.Trade, error)
	CloseTrade(ctx context.Context, userID string, tradeID int64) error
}

// ValuationServiceInterface defines the interface for trade listing operations
type ValuationServiceInterface interface {
	ListTrades(ctx context.Context, userID string, query url.Values) ([]models.TradeValuation, error)
}

// AccountServiceInterface defines the interface for account operations
type AccountServiceInterface interface {
	GetDashboard(ctx context.Context, userID string) (*service.Dashboard, error)
	GetVault(ctx context.Context, userID string) (*models.Vault, error)
	VerifyKYC(ctx context.Context, userID string) error
}

// DepositServiceInterface defines the interface for deposit operations
type DepositServiceInterface interface {
	SubmitReceipt(ctx context.Context, userID string, file io.Reader, filename, contentType string, size int64) (*models.Deposit, error)
	ListDeposits(ctx context.Context) ([]*models.Deposit, error)
}

// TraderServiceInterface defines the interface for leaderboard operations
type TraderServiceInterface interface {
	ListTraders(ctx context.Context, query url.Values) ([]*models.Trader, error)
}

// Server represents the HTTP API server.
type Server struct {
	router           *mux.Router
	httpServer       *http.Server
	authService      AuthServiceInterface
	tradeService     TradeServiceInterface
	valuationService ValuationServiceInterface
	accountService   AccountServiceInterface
	depositService   DepositServiceInterface
	traderService    TraderServiceInterface
	userGetter       UserGetter
	config           *ServerConfig
	logger           *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AuthRPS         float64 // Requests per second per IP on credential endpoints
	AuthBurst       int
	MaxUploadBytes  int64
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	authService AuthServiceInterface,
	tradeService TradeServiceInterface,
	valuationService ValuationServiceInterface,
	accountService AccountServiceInterface,
	depositService DepositServiceInterface,
	traderService TraderServiceInterface,
	userGetter UserGetter,
	logger *logging.Logger,
) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		authService:      authService,
		tradeService:     tradeService,
		valuationService: valuationService,
		accountService:   accountService,
		depositService:   depositService,
		traderService:    traderService,
		userGetter:       userGetter,
		config:           config,
		logger:           logger,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Credential endpoints get per-IP throttling against brute force
	authLimiter := NewRateLimiter(s.config.AuthRPS, s.config.AuthBurst)
	auth := api.NewRoute().Subrouter()
	auth.Use(RateLimitMiddleware(authLimiter))
	auth.HandleFunc("/register", s.handleRegister).Methods("POST")
	auth.HandleFunc("/verify-otp", s.handleVerifyOTP).Methods("POST")
	auth.HandleFunc("/request-otp", s.handleRequestOTP).Methods("POST")
	auth.HandleFunc("/login", s.handleLogin).Methods("POST")
	auth.HandleFunc("/reset-password", s.handleRequestPasswordReset).Methods("POST")
	auth.HandleFunc("/reset-password-confirm", s.handleConfirmPasswordReset).Methods("POST")

	// Public endpoints
	api.HandleFunc("/traders", s.handleListTraders).Methods("GET")

	// Authenticated endpoints
	authed := api.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(s.authService))
	authed.HandleFunc("/logout", s.handleLogout).Methods("POST")
	authed.HandleFunc("/trade", s.handleOpenTrade).Methods("POST")
	authed.HandleFunc("/trades/{id}/close", s.handleCloseTrade).Methods("POST")
	authed.HandleFunc("/list_trade", s.handleListTrades).Methods("GET")
	authed.HandleFunc("/dashboard", s.handleDashboard).Methods("GET")
	authed.HandleFunc("/vault", s.handleVault).Methods("GET")
	authed.HandleFunc("/deposit", s.handleSubmitDeposit).Methods("POST")
	authed.HandleFunc("/kyc/verify", s.handleVerifyKYC).Methods("POST")

	// Staff endpoints
	staff := authed.NewRoute().Subrouter()
	staff.Use(StaffMiddleware(s.userGetter))
	staff.HandleFunc("/deposits", s.handleListDeposits).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "copiqat-backend",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}
