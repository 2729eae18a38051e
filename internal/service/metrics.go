package service

import (
	"context"

	"github.com/tickerpulse/tickerpulse/internal/domain/models"
	"github.com/tickerpulse/tickerpulse/internal/storage"
)

// MetricsService defines business logic for reading derived ticker metrics.
// This decouples HTTP handlers from data access.
type MetricsService interface {
	// GetSnapshot returns the most recent snapshot for a symbol, or nil when
	// the symbol has never been tracked.
	GetSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error)

	// ListSnapshots returns the most recent snapshot of every tracked symbol.
	ListSnapshots(ctx context.Context) ([]models.Snapshot, error)
}

type metricsService struct {
	repo storage.MetricsRepository
}

func NewMetricsService(repo storage.MetricsRepository) MetricsService {
	return &metricsService{repo: repo}
}

func (s *metricsService) GetSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	return s.repo.GetLatest(symbol)
}

func (s *metricsService) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	return s.repo.ListLatest()
}
