package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/copiqat-backend/internal/config"
	"github.com/copiqat-backend/internal/errors"
	"github.com/copiqat-backend/internal/logging"
	"github.com/copiqat-backend/internal/models"
	"github.com/google/uuid"
)

// Repository interfaces for dependency injection

// DepositRepository interface for deposit persistence
type DepositRepository interface {
	Create(ctx context.Context, deposit *models.Deposit) error
	ListAll(ctx context.Context) ([]*models.Deposit, error)
}

// DepositService handles deposit receipt submissions. Receipts are
// images stored on local disk; the row records the path and waits for
// staff approval.
type DepositService struct {
	depositRepo DepositRepository
	uploadsCfg  *config.UploadsConfig
	logger      *logging.Logger
}

// NewDepositService creates a new deposit service
func NewDepositService(depositRepo DepositRepository, uploadsCfg *config.UploadsConfig, logger *logging.Logger) *DepositService {
	return &DepositService{
		depositRepo: depositRepo,
		uploadsCfg:  uploadsCfg,
		logger:      logger,
	}
}

// SubmitReceipt validates and stores an uploaded receipt image and
// records the pending deposit. Only image uploads within the size limit
// are accepted.
func (s *DepositService) SubmitReceipt(ctx context.Context, userID string, file io.Reader, filename, contentType string, size int64) (*models.Deposit, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.NewValidationError("receipt must be an image", map[string]interface{}{
			"contentType": contentType,
		})
	}
	if size <= 0 || size > s.uploadsCfg.MaxReceiptSize {
		return nil, errors.NewValidationError(
			fmt.Sprintf("receipt must be between 1 byte and %d bytes", s.uploadsCfg.MaxReceiptSize),
			map[string]interface{}{"sizeBytes": size},
		)
	}

	path, err := s.saveReceipt(file, filename, size)
	if err != nil {
		return nil, errors.NewInternalError("failed to store receipt", err)
	}

	deposit := &models.Deposit{
		UserID:      userID,
		ReceiptPath: path,
		ContentType: contentType,
		SizeBytes:   size,
	}
	if err := s.depositRepo.Create(ctx, deposit); err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			s.logger.WithError(removeErr).WithField("path", path).Warn("Failed to clean up orphaned receipt file")
		}
		return nil, errors.Categorize(err, "record deposit")
	}

	s.logger.WithFields(map[string]interface{}{
		"userID":    userID,
		"depositID": deposit.ID,
	}).Info("Deposit receipt submitted")

	return deposit, nil
}

// ListDeposits returns every deposit, newest first. Staff only.
func (s *DepositService) ListDeposits(ctx context.Context) ([]*models.Deposit, error) {
	deposits, err := s.depositRepo.ListAll(ctx)
	if err != nil {
		return nil, errors.Categorize(err, "list deposits")
	}
	return deposits, nil
}

// saveReceipt writes the upload under a random name, keeping the
// original extension. LimitReader caps the copy at the declared size so
// a lying Content-Length can't blow past the limit.
func (s *DepositService) saveReceipt(file io.Reader, filename string, size int64) (string, error) {
	if err := os.MkdirAll(s.uploadsCfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create uploads dir: %w", err)
	}

	ext := filepath.Ext(filename)
	path := filepath.Join(s.uploadsCfg.Dir, uuid.New().String()+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(file, size)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write receipt file: %w", err)
	}
	return path, nil
}
