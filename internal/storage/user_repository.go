package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository handles user data persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, password_hash, is_verified,
	is_active, is_staff, is_kyc_verified, referral_code, referred_by, created_at, last_login`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.IsVerified,
		&user.IsActive,
		&user.IsStaff,
		&user.IsKYCVerified,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user and its vault in one transaction.
// The vault row is what makes "vault exists for every user" hold.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `
		INSERT INTO users (id, email, first_name, last_name, password_hash, is_verified,
			is_active, is_staff, is_kyc_verified, referral_code, referred_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.IsVerified,
		user.IsActive,
		user.IsStaff,
		user.IsKYCVerified,
		user.ReferralCode,
		user.ReferredBy,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO vaults (user_id) VALUES ($1)`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to create vault: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.ServiceError{Code: "USER_NOT_FOUND", Message: fmt.Sprintf("user not found: %s", id)}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.ServiceError{Code: "USER_NOT_FOUND", Message: fmt.Sprintf("user not found: %s", email)}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByReferralCode retrieves a user by referral code
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE referral_code = $1`, userColumns)

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.ServiceError{Code: "USER_NOT_FOUND", Message: "referral code not found"}
		}
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}
	return user, nil
}

// ExistsByEmail checks if a user exists by email
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence by email: %w", err)
	}
	return exists, nil
}

// ExistsByReferralCode checks if a referral code is already taken
func (r *UserRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE referral_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check referral code existence: %w", err)
	}
	return exists, nil
}

// MarkVerified flags the user's email as verified and activates the account
func (r *UserRepository) MarkVerified(ctx context.Context, userID string) error {
	result, err := r.db.Pool().Exec(ctx,
		`UPDATE users SET is_verified = TRUE, is_active = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &types.ServiceError{Code: "USER_NOT_FOUND", Message: fmt.Sprintf("user not found: %s", userID)}
	}
	return nil
}

// MarkKYCVerified flags the user as KYC-verified
func (r *UserRepository) MarkKYCVerified(ctx context.Context, userID string) error {
	result, err := r.db.Pool().Exec(ctx,
		`UPDATE users SET is_kyc_verified = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark user KYC-verified: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &types.ServiceError{Code: "USER_NOT_FOUND", Message: fmt.Sprintf("user not found: %s", userID)}
	}
	return nil
}

// UpdatePassword replaces the user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := r.db.Pool().Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return &types.ServiceError{Code: "USER_NOT_FOUND", Message: fmt.Sprintf("user not found: %s", userID)}
	}
	return nil
}

// TouchLastLogin records a successful login
func (r *UserRepository) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := r.db.Pool().Exec(ctx,
		`UPDATE users SET last_login = $2 WHERE id = $1`, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to touch last login: %w", err)
	}
	return nil
}

// CountReferrals counts users referred by the given user
func (r *UserRepository) CountReferrals(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE referred_by = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}
