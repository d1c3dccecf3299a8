package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/copiqat-backend/internal/errors"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/service"
	"github.com/copiqat-backend/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock services

type mockAuthService struct {
	registerErr error
	loginErr    error
	loginResult *service.LoginResult
}

func (m *mockAuthService) Register(ctx context.Context, input service.RegisterInput) (*models.User, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.User{ID: "user-1", Email: input.Email, ReferralCode: "AB23CD45"}, nil
}

func (m *mockAuthService) VerifyOTP(ctx context.Context, email, code string) error   { return nil }
func (m *mockAuthService) RequestOTP(ctx context.Context, email string) error        { return nil }
func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error     { return nil }
func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return nil
}
func (m *mockAuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	return nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResult, nil
}

func (m *mockAuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*service.Claims, error) {
	if tokenString != "good-token" {
		return nil, errors.NewUnauthorizedError("Invalid or expired token")
	}
	return &service.Claims{UserID: "user-1"}, nil
}

type mockTradeService struct {
	openErr    error
	closeErr   error
	openedFor  string
	openedWith service.OpenTradeInput
}

func (m *mockTradeService) OpenTrade(ctx context.Context, userID string, input service.OpenTradeInput) (*models.Trade, error) {
	m.openedFor = userID
	m.openedWith = input
	if m.openErr != nil {
		return nil, m.openErr
	}
	return &models.Trade{
		ID:         7,
		UserID:     userID,
		Asset:      input.Asset,
		Side:       types.SideBuy,
		Status:     types.StatusOpen,
		EntryPrice: decimal.RequireFromString("50000"),
		Duration:   input.Duration,
	}, nil
}

func (m *mockTradeService) CloseTrade(ctx context.Context, userID string, tradeID int64) error {
	return m.closeErr
}

type mockValuationService struct {
	listings []models.TradeValuation
	err      error
}

func (m *mockValuationService) ListTrades(ctx context.Context, userID string, query url.Values) ([]models.TradeValuation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.listings, nil
}

type mockAccountService struct {
	dashboard *service.Dashboard
	err       error
}

func (m *mockAccountService) GetDashboard(ctx context.Context, userID string) (*service.Dashboard, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.dashboard, nil
}

func (m *mockAccountService) GetVault(ctx context.Context, userID string) (*models.Vault, error) {
	return &models.Vault{UserID: userID}, nil
}

func (m *mockAccountService) VerifyKYC(ctx context.Context, userID string) error { return nil }

type mockDepositService struct {
	deposits []*models.Deposit
}

func (m *mockDepositService) SubmitReceipt(ctx context.Context, userID string, file io.Reader, filename, contentType string, size int64) (*models.Deposit, error) {
	return &models.Deposit{ID: 1, UserID: userID, ContentType: contentType, SizeBytes: size}, nil
}

func (m *mockDepositService) ListDeposits(ctx context.Context) ([]*models.Deposit, error) {
	return m.deposits, nil
}

type mockTraderService struct {
	traders []*models.Trader
}

func (m *mockTraderService) ListTraders(ctx context.Context, query url.Values) ([]*models.Trader, error) {
	return m.traders, nil
}

type mockUserGetter struct {
	users map[string]*models.User
}

func (m *mockUserGetter) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, &types.ServiceError{Code: "USER_NOT_FOUND", Message: "user not found"}
}

type testServer struct {
	server    *Server
	auth      *mockAuthService
	trades    *mockTradeService
	valuation *mockValuationService
	accounts  *mockAccountService
	deposits  *mockDepositService
	traders   *mockTraderService
	users     *mockUserGetter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		auth:      &mockAuthService{loginResult: &service.LoginResult{}},
		trades:    &mockTradeService{},
		valuation: &mockValuationService{},
		accounts:  &mockAccountService{dashboard: &service.Dashboard{}},
		deposits:  &mockDepositService{},
		traders:   &mockTraderService{},
		users: &mockUserGetter{users: map[string]*models.User{
			"user-1": {ID: "user-1", IsStaff: false},
		}},
	}

	ts.server = NewServer(
		&ServerConfig{
			Host:           "127.0.0.1",
			Port:           "0",
			ReadTimeout:    time.Second,
			WriteTimeout:   time.Second,
			IdleTimeout:    time.Second,
			AuthRPS:        1000,
			AuthBurst:      1000,
			MaxUploadBytes: 1 << 20,
		},
		ts.auth, ts.trades, ts.valuation, ts.accounts, ts.deposits, ts.traders, ts.users,
		logging.NewLogger(logging.LevelError, logging.FormatText),
	)

	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ServiceError {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRegisterCreated(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/register", "", map[string]string{
		"email":           "jane@example.com",
		"firstName":       "Jane",
		"lastName":        "Doe",
		"password":        "hunter2hunter2",
		"confirmPassword": "hunter2hunter2",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "jane@example.com")
	assert.Contains(t, rec.Body.String(), "AB23CD45")
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/register", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidInput, decodeError(t, rec).Code)
}

func TestRegisterValidationErrorPassesThrough(t *testing.T) {
	ts := newTestServer(t)
	ts.auth.registerErr = errors.NewValidationError("Email is already taken", nil)

	rec := ts.do(t, "POST", "/api/register", "", map[string]string{"email": "jane@example.com"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is already taken", decodeError(t, rec).Message)
}

func TestLoginUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	ts.auth.loginErr = errors.NewUnauthorizedError("Invalid email or password")

	rec := ts.do(t, "POST", "/api/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "wrong",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/dashboard", "/api/vault", "/api/list_trade"} {
		rec := ts.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := ts.do(t, "GET", "/api/dashboard", "bad-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOpenTrade(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/trade", "good-token", map[string]string{
		"asset":     "BTC/USD",
		"tradeType": "buy",
		"duration":  "1h",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-1", ts.trades.openedFor)
	assert.Equal(t, "BTC/USD", ts.trades.openedWith.Asset)

	var trade models.Trade
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&trade))
	assert.Equal(t, int64(7), trade.ID)
}

func TestOpenTradeDuplicateConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.trades.openErr = &types.ServiceError{
		Code:    "DUPLICATE_OPEN_TRADE",
		Message: "an open trade for this asset and side already exists",
	}

	rec := ts.do(t, "POST", "/api/trade", "good-token", map[string]string{
		"asset":     "BTC/USD",
		"tradeType": "buy",
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_OPEN_TRADE", decodeError(t, rec).Code)
}

func TestCloseTradeRejectsNonNumericID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/trades/abc/close", "good-token", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTrades(t *testing.T) {
	ts := newTestServer(t)
	ts.valuation.listings = []models.TradeValuation{
		{ID: 1, Asset: "BTC/USD", EntryPrice: "50000.00", CurrentPrice: "55000.00", PL: "5000.00", PLPercent: "10.00"},
	}

	rec := ts.do(t, "GET", "/api/list_trade?trade_status=open", "good-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var listing []models.TradeValuation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listing))
	require.Len(t, listing, 1)
	assert.Equal(t, "5000.00", listing[0].PL)
}

func TestTradersEndpointIsPublic(t *testing.T) {
	ts := newTestServer(t)
	ts.traders.traders = []*models.Trader{{ID: 1, Name: "Ava Chen", Stars: 5}}

	rec := ts.do(t, "GET", "/api/traders", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ava Chen")
}

func TestDepositsListIsStaffOnly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/api/deposits", "good-token", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	ts.users.users["user-1"].IsStaff = true
	rec = ts.do(t, "GET", "/api/deposits", "good-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	ts := newTestServer(t)
	ts.accounts.err = fmt.Errorf("pq: connection refused")

	rec := ts.do(t, "GET", "/api/dashboard", "good-token", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	svcErr := decodeError(t, rec)
	assert.Equal(t, "An internal error occurred", svcErr.Message)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	ts := newTestServer(t)
	// Rebuild with a tight limit
	ts.server = NewServer(
		&ServerConfig{AuthRPS: 1, AuthBurst: 2},
		ts.auth, ts.trades, ts.valuation, ts.accounts, ts.deposits, ts.traders, ts.users,
		logging.NewLogger(logging.LevelError, logging.FormatText),
	)

	body := map[string]string{"email": "jane@example.com", "password": "pw"}

	var lastCode int
	for i := 0; i < 5; i++ {
		lastCode = ts.do(t, "POST", "/api/login", "", body).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, lastCode)

	// Non-credential endpoints are not throttled
	rec := ts.do(t, "GET", "/api/traders", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
