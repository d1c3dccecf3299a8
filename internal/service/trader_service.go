package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/copiqat-backend/internal/errors"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/storage"
)

// Repository interfaces for dependency injection

// TraderRepository interface for leaderboard queries
type TraderRepository interface {
	List(ctx context.Context, q storage.TraderQuery) ([]*models.Trader, error)
}

// TraderService serves the public leaderboard of copyable traders
type TraderService struct {
	traderRepo TraderRepository
}

// NewTraderService creates a new trader service
func NewTraderService(traderRepo TraderRepository) *TraderService {
	return &TraderService{traderRepo: traderRepo}
}

// ListTraders returns the leaderboard, honoring the stars filter, name
// search and ordering params. Ordering fields outside the whitelist are
// rejected rather than silently dropped.
func (s *TraderService) ListTraders(ctx context.Context, query url.Values) ([]*models.Trader, error) {
	q := storage.TraderQuery{
		Search: strings.TrimSpace(query.Get("search")),
	}

	if raw := query.Get("stars"); raw != "" {
		stars, err := strconv.Atoi(raw)
		if err != nil || stars < 0 {
			return nil, errors.NewValidationError("stars must be a non-negative integer", map[string]interface{}{
				"stars": raw,
			})
		}
		q.Stars = &stars
	}

	if raw := query.Get("ordering"); raw != "" {
		for _, field := range strings.Split(raw, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			if !storage.ValidTraderOrderField(field) {
				return nil, errors.NewValidationError("unsupported ordering field", map[string]interface{}{
					"ordering": field,
				})
			}
			q.Ordering = append(q.Ordering, field)
		}
	}

	traders, err := s.traderRepo.List(ctx, q)
	if err != nil {
		return nil, errors.Categorize(err, "list traders")
	}
	return traders, nil
}
