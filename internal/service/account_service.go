package service

import (
	"context"
	"fmt"

	"github.com/copiqat-backend/internal/config"
	"github.com/copiqat-backend/internal/errors"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
)

// Repository interfaces for dependency injection

// AccountUserRepository interface for the account-facing slice of user data
type AccountUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	MarkKYCVerified(ctx context.Context, userID string) error
	CountReferrals(ctx context.Context, userID string) (int64, error)
}

// VaultRepository interface for vault reads
type VaultRepository interface {
	GetByUser(ctx context.Context, userID string) (*models.Vault, error)
}

// OpenTradeCounter interface for counting a user's active positions
type OpenTradeCounter interface {
	CountOpenByUser(ctx context.Context, userID string) (int64, error)
}

// AccountService serves the dashboard, vault and KYC surface of a
// logged-in account.
type AccountService struct {
	userRepo    AccountUserRepository
	vaultRepo   VaultRepository
	tradeRepo   OpenTradeCounter
	referralCfg *config.ReferralConfig
	logger      *logging.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	userRepo AccountUserRepository,
	vaultRepo VaultRepository,
	tradeRepo OpenTradeCounter,
	referralCfg *config.ReferralConfig,
	logger *logging.Logger,
) *AccountService {
	return &AccountService{
		userRepo:    userRepo,
		vaultRepo:   vaultRepo,
		tradeRepo:   tradeRepo,
		referralCfg: referralCfg,
		logger:      logger,
	}
}

// Dashboard is the aggregate view behind the account home screen
type Dashboard struct {
	Balance       string `json:"balance"`
	Earning       string `json:"earning"`
	Today         string `json:"today"`
	DailyPL       string `json:"dailyPl"`
	WeeklyPL      string `json:"weeklyPl"`
	MonthlyPL     string `json:"monthlyPl"`
	OpenTrades    int64  `json:"openTrades"`
	ReferralCount int64  `json:"referralCount"`
	ReferralLink  string `json:"referralLink"`
	IsKYCVerified bool   `json:"isKycVerified"`
}

// GetDashboard aggregates the vault figures, open-position count and
// referral stats for a user. A missing vault renders as zeros rather
// than an error; every account is expected to have one, but the
// dashboard is not the place to enforce it.
func (s *AccountService) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.Categorize(err, "load user")
	}

	vault, err := s.vaultRepo.GetByUser(ctx, userID)
	if err != nil {
		if !types.IsServiceErrorCode(err, "VAULT_NOT_FOUND") {
			return nil, errors.Categorize(err, "load vault")
		}
		s.logger.WithField("userID", userID).Warn("Account has no vault, serving zeros")
		vault = &models.Vault{UserID: userID}
	}

	openTrades, err := s.tradeRepo.CountOpenByUser(ctx, userID)
	if err != nil {
		return nil, errors.Categorize(err, "count open trades")
	}

	referralCount, err := s.userRepo.CountReferrals(ctx, userID)
	if err != nil {
		return nil, errors.Categorize(err, "count referrals")
	}

	return &Dashboard{
		Balance:       vault.Balance.StringFixed(2),
		Earning:       vault.Earning.StringFixed(2),
		Today:         vault.Today.StringFixed(2),
		DailyPL:       vault.DailyPL.StringFixed(2),
		WeeklyPL:      vault.WeeklyPL.StringFixed(2),
		MonthlyPL:     vault.MonthlyPL.StringFixed(2),
		OpenTrades:    openTrades,
		ReferralCount: referralCount,
		ReferralLink:  s.ReferralLink(user.ReferralCode),
		IsKYCVerified: user.IsKYCVerified,
	}, nil
}

// GetVault returns the user's vault
func (s *AccountService) GetVault(ctx context.Context, userID string) (*models.Vault, error) {
	vault, err := s.vaultRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, errors.Categorize(err, "load vault")
	}
	return vault, nil
}

// VerifyKYC marks the account as KYC-verified
func (s *AccountService) VerifyKYC(ctx context.Context, userID string) error {
	if err := s.userRepo.MarkKYCVerified(ctx, userID); err != nil {
		return errors.Categorize(err, "verify KYC")
	}
	s.logger.WithField("userID", userID).Info("KYC verified")
	return nil
}

// ReferralLink builds the shareable signup link for a referral code
func (s *AccountService) ReferralLink(code string) string {
	return fmt.Sprintf("%s/auth/signup?ref=%s", s.referralCfg.SignupBaseURL, code)
}
