package service

import (
	"context"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/repository"
)

// AlertService exposes back-office notifications.
type AlertService struct {
	alerts repository.AlertRepository
}

func NewAlertService(alerts repository.AlertRepository) *AlertService {
	return &AlertService{alerts: alerts}
}

func (s *AlertService) List(ctx context.Context) ([]domain.Alert, error) {
	return s.alerts.List(ctx)
}

func (s *AlertService) MarkRead(ctx context.Context, id string) error {
	return s.alerts.MarkRead(ctx, id)
}
