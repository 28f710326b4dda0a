package repository

import (
	"context"
	"fmt"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/store"
)

// AlertRepository is the back-office alerts collection.
type AlertRepository interface {
	List(ctx context.Context) ([]domain.Alert, error)
	AddBatch(ctx context.Context, alerts []domain.Alert) error
	MarkRead(ctx context.Context, id string) error
}

type alertRepository struct {
	store store.DocumentStore
}

func NewAlertRepository(st store.DocumentStore) AlertRepository {
	return &alertRepository{store: st}
}

func (r *alertRepository) List(ctx context.Context) ([]domain.Alert, error) {
	docs, err := r.store.Query(ctx, store.CollectionAlerts, nil,
		&store.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(docs))
	for _, doc := range docs {
		alerts = append(alerts, alertFromDoc(doc))
	}
	return alerts, nil
}

func (r *alertRepository) AddBatch(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	batch := r.store.NewBatch()
	for _, a := range alerts {
		id := a.ID
		if id == "" {
			id = store.NewID()
		}
		batch.Set(store.CollectionAlerts, id, store.Doc{
			"type":       a.Type,
			"message":    a.Message,
			"severity":   a.Severity,
			"created_at": a.CreatedAt,
			"read":       a.Read,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("add alerts: %w", err)
	}
	return nil
}

func (r *alertRepository) MarkRead(ctx context.Context, id string) error {
	return r.store.Update(ctx, store.CollectionAlerts, id, store.Doc{"read": true})
}

func alertFromDoc(doc store.Document) domain.Alert {
	data := doc.Data
	read, _ := data["read"].(bool)
	return domain.Alert{
		ID:        doc.ID,
		Type:      stringField(data, "type"),
		Message:   stringField(data, "message"),
		Severity:  stringField(data, "severity"),
		CreatedAt: stringField(data, "created_at"),
		Read:      read,
	}
}

func stringField(doc store.Doc, key string) string {
	s, _ := doc[key].(string)
	return s
}
