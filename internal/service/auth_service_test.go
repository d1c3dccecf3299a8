package service

import (
	"context"
	"testing"
	"time"

	"github.com/copiqat-backend/internal/config"
	"github.com/copiqat-backend/internal/errors"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock repositories for testing

type mockUserRepo struct {
	users map[string]*models.User // keyed by email
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, &types.ServiceError{Code: "USER_NOT_FOUND", Message: "user not found"}
}

func (m *mockUserRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	for _, u := range m.users {
		if u.ReferralCode == code {
			return u, nil
		}
	}
	return nil, &types.ServiceError{Code: "USER_NOT_FOUND", Message: "referral code not found"}
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, ok := m.users[email]
	return ok, nil
}

func (m *mockUserRepo) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	for _, u := range m.users {
		if u.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) MarkVerified(ctx context.Context, userID string) error {
	for _, u := range m.users {
		if u.ID == userID {
			u.IsVerified = true
			u.IsActive = true
			return nil
		}
	}
	return &types.ServiceError{Code: "USER_NOT_FOUND", Message: "user not found"}
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	for _, u := range m.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return &types.ServiceError{Code: "USER_NOT_FOUND", Message: "user not found"}
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, userID string) error {
	return nil
}

type mockOTPRepo struct {
	tokens map[string]*models.OTPToken // keyed by userID+purpose
}

func newMockOTPRepo() *mockOTPRepo {
	return &mockOTPRepo{tokens: make(map[string]*models.OTPToken)}
}

func otpKey(userID string, purpose types.OTPPurpose) string {
	return userID + "/" + string(purpose)
}

func (m *mockOTPRepo) Replace(ctx context.Context, token *models.OTPToken) error {
	m.tokens[otpKey(token.UserID, types.OTPPurpose(token.Purpose))] = token
	return nil
}

func (m *mockOTPRepo) LatestUnconsumed(ctx context.Context, userID string, purpose types.OTPPurpose) (*models.OTPToken, error) {
	if tok, ok := m.tokens[otpKey(userID, purpose)]; ok && !tok.Consumed {
		return tok, nil
	}
	return nil, &types.ServiceError{Code: "OTP_NOT_FOUND", Message: "no pending code"}
}

func (m *mockOTPRepo) MarkConsumed(ctx context.Context, tokenID string) error {
	for _, tok := range m.tokens {
		if tok.ID == tokenID {
			tok.Consumed = true
			return nil
		}
	}
	return &types.ServiceError{Code: "OTP_NOT_FOUND", Message: "token not found"}
}

type mockOTPMailer struct {
	sentCodes []string
	sendErr   error
}

func (m *mockOTPMailer) SendActivationOTP(ctx context.Context, to, firstName, code string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sentCodes = append(m.sentCodes, code)
	return nil
}

func (m *mockOTPMailer) EnqueueActivationOTP(ctx context.Context, to, firstName, code string) {
	m.sentCodes = append(m.sentCodes, code)
}

func (m *mockOTPMailer) EnqueuePasswordResetOTP(ctx context.Context, to, firstName, code string) {
	m.sentCodes = append(m.sentCodes, code)
}

func (m *mockOTPMailer) lastCode() string {
	if len(m.sentCodes) == 0 {
		return ""
	}
	return m.sentCodes[len(m.sentCodes)-1]
}

type mockBlacklist struct {
	revoked map[string]bool
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]bool)}
}

func (m *mockBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	m.revoked[jti] = true
	return nil
}

func (m *mockBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return m.revoked[jti], nil
}

func setupAuthService(t *testing.T) (*AuthService, *mockUserRepo, *mockOTPRepo, *mockOTPMailer, *mockBlacklist) {
	t.Helper()

	users := newMockUserRepo()
	otps := newMockOTPRepo()
	mail := &mockOTPMailer{}
	blacklist := newMockBlacklist()
	jwtCfg := &config.JWTConfig{
		Secret:     "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)

	return NewAuthService(users, otps, mail, blacklist, jwtCfg, logger), users, otps, mail, blacklist
}

func registerInput() RegisterInput {
	return RegisterInput{
		Email:           "jane@example.com",
		FirstName:       "Jane",
		LastName:        "Doe",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
	}
}

func TestRegisterAndVerify(t *testing.T) {
	svc, users, _, mail, _ := setupAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	assert.False(t, user.IsVerified)
	assert.NotEmpty(t, user.ReferralCode)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	require.Len(t, mail.sentCodes, 1)

	// The emailed code activates the account
	require.NoError(t, svc.VerifyOTP(ctx, "jane@example.com", mail.lastCode()))
	assert.True(t, users.users["jane@example.com"].IsVerified)

	// Codes are single-use
	err = svc.VerifyOTP(ctx, "jane@example.com", mail.lastCode())
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput())
	require.Error(t, err)
	assert.Equal(t, 400, errors.GetHTTPStatusCode(err))
}

func TestRegisterPasswordMismatch(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t)

	input := registerInput()
	input.ConfirmPassword = "different"
	_, err := svc.Register(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, 400, errors.GetHTTPStatusCode(err))
}

func TestRegisterMailFailureFailsRegistration(t *testing.T) {
	svc, _, _, mail, _ := setupAuthService(t)
	mail.sendErr = context.DeadlineExceeded

	_, err := svc.Register(context.Background(), registerInput())
	require.Error(t, err)
	assert.Equal(t, 500, errors.GetHTTPStatusCode(err))
}

func TestRegisterWithReferral(t *testing.T) {
	svc, users, _, mail, _ := setupAuthService(t)
	ctx := context.Background()

	referrer, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(ctx, referrer.Email, mail.lastCode()))

	input := RegisterInput{
		Email:           "friend@example.com",
		FirstName:       "Fred",
		LastName:        "Friend",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
		ReferralCode:    referrer.ReferralCode,
	}
	referee, err := svc.Register(ctx, input)
	require.NoError(t, err)
	require.NotNil(t, referee.ReferredBy)
	assert.Equal(t, referrer.ID, *referee.ReferredBy)
	assert.Equal(t, referee, users.users["friend@example.com"])
}

func TestRegisterInvalidReferralCode(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t)

	input := registerInput()
	input.ReferralCode = "NO-SUCH-CODE"
	_, err := svc.Register(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, 400, errors.GetHTTPStatusCode(err))
}

func TestVerifyOTPWrongCode(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	err = svc.VerifyOTP(ctx, "jane@example.com", "000000")
	require.Error(t, err)
	assert.Equal(t, 400, errors.GetHTTPStatusCode(err))
}

func TestVerifyOTPExpired(t *testing.T) {
	svc, _, otps, mail, _ := setupAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)

	// Age the stored token past its validity window
	tok := otps.tokens[otpKey(user.ID, types.PurposeActivation)]
	tok.ExpiresAt = time.Now().Add(-time.Minute)

	err = svc.VerifyOTP(ctx, "jane@example.com", mail.lastCode())
	require.Error(t, err)
	assert.Equal(t, 400, errors.GetHTTPStatusCode(err))
}

func TestRequestOTPReplacesCode(t *testing.T) {
	svc, users, _, mail, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	firstCode := mail.lastCode()

	require.NoError(t, svc.RequestOTP(ctx, "jane@example.com"))
	require.Len(t, mail.sentCodes, 2)

	// Only the fresh code works; reissuing replaced the old secret
	newCode := mail.lastCode()
	if newCode != firstCode {
		require.Error(t, svc.VerifyOTP(ctx, "jane@example.com", firstCode))
	}
	require.NoError(t, svc.VerifyOTP(ctx, "jane@example.com", newCode))
	assert.True(t, users.users["jane@example.com"].IsVerified)
}

func TestLoginFlow(t *testing.T) {
	svc, _, _, mail, _ := setupAuthService(t)
	ctx := context.Background()

	// Login before verification is refused
	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	_, err = svc.Login(ctx, "jane@example.com", "s3cret-pass")
	require.Error(t, err)
	assert.Equal(t, 401, errors.GetHTTPStatusCode(err))

	require.NoError(t, svc.VerifyOTP(ctx, "jane@example.com", mail.lastCode()))

	result, err := svc.Login(ctx, "jane@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Jane Doe", result.FullName)

	// The issued access token verifies
	claims, err := svc.VerifyAccessToken(ctx, result.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.UserID)

	// A refresh token is not an access token
	_, err = svc.VerifyAccessToken(ctx, result.RefreshToken)
	assert.Error(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _, mail, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(ctx, "jane@example.com", mail.lastCode()))

	_, err = svc.Login(ctx, "jane@example.com", "wrong-pass")
	require.Error(t, err)
	assert.Equal(t, 401, errors.GetHTTPStatusCode(err))

	// Unknown email is indistinguishable from a wrong password
	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	require.Error(t, err)
	assert.Equal(t, 401, errors.GetHTTPStatusCode(err))
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, _, mail, blacklist := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(ctx, "jane@example.com", mail.lastCode()))

	result, err := svc.Login(ctx, "jane@example.com", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.RefreshToken))
	assert.Len(t, blacklist.revoked, 1)

	// Garbage tokens are rejected
	err = svc.Logout(ctx, "not-a-token")
	assert.Error(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, _, mail, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput())
	require.NoError(t, err)
	require.NoError(t, svc.VerifyOTP(ctx, "jane@example.com", mail.lastCode()))

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com"))
	code := mail.lastCode()

	require.NoError(t, svc.ConfirmPasswordReset(ctx, "jane@example.com", code, "brand-new-pass"))

	// Old password no longer works, new one does
	_, err = svc.Login(ctx, "jane@example.com", "s3cret-pass")
	assert.Error(t, err)
	_, err = svc.Login(ctx, "jane@example.com", "brand-new-pass")
	assert.NoError(t, err)
}

func TestPasswordResetShortPassword(t *testing.T) {
	svc, _, _, _, _ := setupAuthService(t)

	err := svc.ConfirmPasswordReset(context.Background(), "jane@example.com", "123456", "short")
	require.Error(t, err)
	assert.Equal(t, 400, errors.GetHTTPStatusCode(err))
}
