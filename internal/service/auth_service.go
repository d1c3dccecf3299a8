package service

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/copiqat-backend/internal/config"
	"github.com/copiqat-backend/internal/errors"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// otpPeriod is the validity window of a one-time code. Each OTP token
// carries its own secret, so a code is bound to the issuance that
// created it, not just to the clock.
const otpPeriod = 10 * time.Minute

const otpDigits = 6

// referralCodeLength is the length of generated referral codes
const referralCodeLength = 8

// Repository interfaces for dependency injection

// UserRepository interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByReferralCode(ctx context.Context, code string) (bool, error)
	MarkVerified(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID string) error
}

// OTPRepository interface for one-time code persistence
type OTPRepository interface {
	Replace(ctx context.Context, token *models.OTPToken) error
	LatestUnconsumed(ctx context.Context, userID string, purpose types.OTPPurpose) (*models.OTPToken, error)
	MarkConsumed(ctx context.Context, tokenID string) error
}

// OTPMailer interface for delivering one-time codes
type OTPMailer interface {
	SendActivationOTP(ctx context.Context, to, firstName, code string) error
	EnqueueActivationOTP(ctx context.Context, to, firstName, code string)
	EnqueuePasswordResetOTP(ctx context.Context, to, firstName, code string)
}

// TokenRevoker interface for refresh token revocation
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthService handles registration, email verification, login, logout
// and password resets. Accounts start unverified and inactive; a TOTP
// code delivered by email flips both flags.
type AuthService struct {
	userRepo  UserRepository
	otpRepo   OTPRepository
	mailer    OTPMailer
	blacklist TokenRevoker
	jwtCfg    *config.JWTConfig
	logger    *logging.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	otpRepo OTPRepository,
	mailer OTPMailer,
	blacklist TokenRevoker,
	jwtCfg *config.JWTConfig,
	logger *logging.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		otpRepo:   otpRepo,
		mailer:    mailer,
		blacklist: blacklist,
		jwtCfg:    jwtCfg,
		logger:    logger,
	}
}

// Input types

// RegisterInput represents input for creating an account
type RegisterInput struct {
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	ReferralCode    string `json:"referralCode,omitempty"`
}

// LoginResult represents a successful authentication
type LoginResult struct {
	AccessToken   string `json:"access"`
	RefreshToken  string `json:"refresh"`
	FullName      string `json:"fullname"`
	Email         string `json:"email"`
	IsKYCVerified bool   `json:"isKycVerified"`
	ReferralCode  string `json:"referralCode"`
}

// Claims are the JWT claims carried by access and refresh tokens
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Register creates an unverified account, its vault, and emails the
// activation code. Delivery of the first activation email is part of the
// registration contract, so a send failure fails the whole call.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateRegistration(email, input); err != nil {
		return nil, err
	}

	taken, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, errors.Categorize(err, "check email")
	}
	if taken {
		return nil, errors.NewValidationError("Email is already taken", nil)
	}

	var referredBy *string
	if code := strings.TrimSpace(input.ReferralCode); code != "" {
		referrer, err := s.userRepo.GetByReferralCode(ctx, code)
		if err != nil {
			if types.IsServiceErrorCode(err, "USER_NOT_FOUND") {
				return nil, errors.NewValidationError("Invalid referral code", nil)
			}
			return nil, errors.Categorize(err, "resolve referral code")
		}
		referredBy = &referrer.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	referralCode, err := s.generateReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: string(hash),
		ReferralCode: referralCode,
		ReferredBy:   referredBy,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, errors.Categorize(err, "create user")
	}

	code, err := s.issueOTP(ctx, user.ID, types.PurposeActivation)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendActivationOTP(ctx, user.Email, user.FirstName, code); err != nil {
		return nil, errors.NewInternalError("failed to send activation email", err)
	}

	s.logger.WithField("userID", user.ID).Info("User registered")
	return user, nil
}

// VerifyOTP consumes an activation code and activates the account
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return errors.NewValidationError("Account is already verified", nil)
	}

	if err := s.consumeOTP(ctx, user.ID, types.PurposeActivation, code); err != nil {
		return err
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		return errors.Categorize(err, "mark verified")
	}

	s.logger.WithField("userID", user.ID).Info("User verified")
	return nil
}

// RequestOTP issues a fresh activation code for an unverified account.
// Re-requested codes are delivered best-effort through the mail queue.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return errors.NewValidationError("Account is already verified", nil)
	}

	code, err := s.issueOTP(ctx, user.ID, types.PurposeActivation)
	if err != nil {
		return err
	}
	s.mailer.EnqueueActivationOTP(ctx, user.Email, user.FirstName, code)
	return nil
}

// Login authenticates a verified account and issues an access/refresh
// token pair. Unknown emails and wrong passwords are indistinguishable
// to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if types.IsServiceErrorCode(err, "USER_NOT_FOUND") {
			return nil, errors.NewUnauthorizedError("Invalid email or password")
		}
		return nil, errors.Categorize(err, "login")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.NewUnauthorizedError("Invalid email or password")
	}
	if !user.IsVerified {
		return nil, errors.NewUnauthorizedError("Email is not verified")
	}

	access, err := s.signToken(user.ID, "access", s.jwtCfg.AccessTTL)
	if err != nil {
		return nil, errors.NewInternalError("failed to sign access token", err)
	}
	refresh, err := s.signToken(user.ID, "refresh", s.jwtCfg.RefreshTTL)
	if err != nil {
		return nil, errors.NewInternalError("failed to sign refresh token", err)
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("userID", user.ID).Warn("Failed to record last login")
	}

	return &LoginResult{
		AccessToken:   access,
		RefreshToken:  refresh,
		FullName:      user.FullName(),
		Email:         user.Email,
		IsKYCVerified: user.IsKYCVerified,
		ReferralCode:  user.ReferralCode,
	}, nil
}

// Logout revokes a refresh token. The token's jti goes on the blacklist
// until its natural expiry, after which Redis forgets it on its own.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.ParseToken(refreshToken, "refresh")
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.jwtCfg.RefreshTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return errors.Categorize(err, "revoke token")
	}
	return nil
}

// RequestPasswordReset issues a password reset code for the account
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := s.issueOTP(ctx, user.ID, types.PurposePasswordReset)
	if err != nil {
		return err
	}
	s.mailer.EnqueuePasswordResetOTP(ctx, user.Email, user.FirstName, code)
	return nil
}

// ConfirmPasswordReset consumes a reset code and sets the new password
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.NewValidationError("Password must be at least 8 characters", nil)
	}

	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.consumeOTP(ctx, user.ID, types.PurposePasswordReset, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.NewInternalError("failed to hash password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return errors.Categorize(err, "update password")
	}

	s.logger.WithField("userID", user.ID).Info("Password reset")
	return nil
}

// ParseToken validates a token's signature, expiry, type and revocation
// status, returning its claims.
func (s *AuthService) ParseToken(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.NewUnauthorizedError("Invalid or expired token")
	}
	if claims.TokenType != wantType {
		return nil, errors.NewUnauthorizedError("Invalid token type")
	}
	return claims, nil
}

// VerifyAccessToken parses an access token and checks the blacklist
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.ParseToken(tokenString, "access")
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, errors.Categorize(err, "check token revocation")
	}
	if revoked {
		return nil, errors.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

func (s *AuthService) signToken(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
}

// issueOTP mints a fresh secret, stores the token (replacing any earlier
// unconsumed one for the same purpose) and returns the current code.
func (s *AuthService) issueOTP(ctx context.Context, userID string, purpose types.OTPPurpose) (string, error) {
	secretBytes := make([]byte, 20)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", errors.NewInternalError("failed to generate OTP secret", err)
	}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secretBytes)

	now := time.Now()
	token := &models.OTPToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Purpose:   string(purpose),
		Secret:    secret,
		CreatedAt: now,
		ExpiresAt: now.Add(otpPeriod),
	}
	if err := s.otpRepo.Replace(ctx, token); err != nil {
		return "", errors.Categorize(err, "store OTP")
	}

	code, err := totp.GenerateCodeCustom(secret, now, totpOpts())
	if err != nil {
		return "", errors.NewInternalError("failed to generate OTP code", err)
	}
	return code, nil
}

// consumeOTP validates a submitted code against the latest unconsumed
// token and marks it consumed on success. Expired or wrong codes are
// both validation failures; codes are single-use.
func (s *AuthService) consumeOTP(ctx context.Context, userID string, purpose types.OTPPurpose, code string) error {
	token, err := s.otpRepo.LatestUnconsumed(ctx, userID, purpose)
	if err != nil {
		if types.IsServiceErrorCode(err, "OTP_NOT_FOUND") {
			return errors.NewValidationError("Invalid OTP", nil)
		}
		return errors.Categorize(err, "load OTP")
	}
	if token.IsExpired(time.Now()) {
		return errors.NewValidationError("OTP has expired, request a new one", nil)
	}

	valid, err := totp.ValidateCustom(code, token.Secret, time.Now(), totpOpts())
	if err != nil || !valid {
		return errors.NewValidationError("Invalid OTP", nil)
	}

	if err := s.otpRepo.MarkConsumed(ctx, token.ID); err != nil {
		return errors.Categorize(err, "consume OTP")
	}
	return nil
}

func totpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period: uint(otpPeriod.Seconds()),
		Digits: otpDigits,
	}
}

func (s *AuthService) getUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if types.IsServiceErrorCode(err, "USER_NOT_FOUND") {
			return nil, errors.NewNotFoundError("account", email)
		}
		return nil, errors.Categorize(err, "load user")
	}
	return user, nil
}

// generateReferralCode mints a short unique uppercase code for the
// signup link. Collisions are vanishingly rare at this length but
// checked anyway.
func (s *AuthService) generateReferralCode(ctx context.Context) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, referralCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", errors.NewInternalError("failed to generate referral code", err)
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		code := string(buf)

		taken, err := s.userRepo.ExistsByReferralCode(ctx, code)
		if err != nil {
			return "", errors.Categorize(err, "check referral code")
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.NewInternalError("failed to generate a unique referral code", nil)
}

func validateRegistration(email string, input RegisterInput) error {
	if email == "" || !strings.Contains(email, "@") {
		return errors.NewValidationError("A valid email is required", nil)
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return errors.NewValidationError("First and last name are required", nil)
	}
	if len(input.Password) < 8 {
		return errors.NewValidationError("Password must be at least 8 characters", nil)
	}
	if input.Password != input.ConfirmPassword {
		return errors.NewValidationError("Passwords do not match", nil)
	}
	return nil
}
