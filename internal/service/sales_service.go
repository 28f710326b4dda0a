package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caisseapp/backoffice/internal/cache"
	"github.com/caisseapp/backoffice/internal/config"
	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/repository"
	"github.com/caisseapp/backoffice/internal/store"
)

// SalesService owns mutations of the active sales set, including the
// one-way archival of records into the audit-trailed historical set.
type SalesService struct {
	sales   repository.SaleRepository
	archive repository.ArchiveRepository
	stats   cache.StatsCache
	cfg     config.ArchiveConfig
	now     func() time.Time
}

func NewSalesService(sales repository.SaleRepository, archive repository.ArchiveRepository, stats cache.StatsCache, cfg config.ArchiveConfig) *SalesService {
	if stats == nil {
		stats = cache.NewNoopStatsCache()
	}
	return &SalesService{
		sales:   sales,
		archive: archive,
		stats:   stats,
		cfg:     cfg,
		now:     time.Now,
	}
}

// List returns the active sales ordered by date descending.
func (s *SalesService) List(ctx context.Context) ([]domain.SaleRecord, error) {
	return s.sales.ListActive(ctx)
}

// Add validates and persists a batch of new sales in one commit.
func (s *SalesService) Add(ctx context.Context, sales []domain.SaleRecord) (int, error) {
	for i, sale := range sales {
		if sale.Product == "" {
			return 0, domain.ValidationError{Field: fmt.Sprintf("sales[%d].product", i), Message: "must not be empty"}
		}
		if sale.Quantity <= 0 {
			return 0, domain.ValidationError{Field: fmt.Sprintf("sales[%d].quantity", i), Message: "must be positive"}
		}
		if sale.Price < 0 {
			return 0, domain.ValidationError{Field: fmt.Sprintf("sales[%d].price", i), Message: "must not be negative"}
		}
	}

	count, err := s.sales.AddBatch(ctx, sales)
	if err != nil {
		return 0, err
	}
	s.invalidateStats(ctx)
	return count, nil
}

// Update applies field updates to one sale. It returns false without an
// error when the sale no longer exists, the caller decides whether that
// matters.
func (s *SalesService) Update(ctx context.Context, id string, fields store.Doc) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, domain.ValidationError{Field: "id", Message: "must not be empty"}
	}

	exists, err := s.sales.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		log.Warn().Str("sale", id).Msg("sale not found for update")
		return false, nil
	}

	fields["updatedAt"] = s.now().UTC().Format(time.RFC3339)
	if err := s.sales.Update(ctx, id, fields); err != nil {
		return false, err
	}
	s.invalidateStats(ctx)
	return true, nil
}

// ArchiveSales moves each listed sale into the archive set. Processing
// is per-ID sequential and independent: one failure never aborts the
// rest. For each found record the copy is written first and the original
// deleted second; the original_id on the copy is the retry key that
// keeps a crash between the two writes recoverable.
func (s *SalesService) ArchiveSales(ctx context.Context, ids []string, archivedBy string) domain.ArchiveResult {
	if archivedBy == "" {
		archivedBy = s.cfg.ArchivedBy
	}

	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			valid = append(valid, trimmed)
		}
	}
	if len(valid) != len(ids) {
		log.Warn().
			Int("invalid", len(ids)-len(valid)).
			Int("valid", len(valid)).
			Msg("dropping invalid sale ids from archive request")
	}
	if len(valid) == 0 {
		return domain.ArchiveResult{
			Success: false,
			Errors:  []string{"no valid sale ids provided for archiving"},
		}
	}

	result := domain.ArchiveResult{Errors: []string{}}

	for _, id := range valid {
		doc, err := s.sales.GetDoc(ctx, id)
		if err == store.ErrNotFound {
			// Another actor may have archived it already; a miss is a
			// skip, not a failure.
			result.NotFoundCount++
			continue
		}
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}

		archived, err := s.archive.HasOriginal(ctx, id)
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}

		if !archived {
			archiveDoc := make(store.Doc, len(doc)+5)
			for k, v := range doc {
				archiveDoc[k] = v
			}
			archiveDoc["original_id"] = id
			archiveDoc["archived_at"] = s.now().UTC().Format(time.RFC3339)
			archiveDoc["archived_by"] = archivedBy
			archiveDoc["archive_reason"] = domain.ArchiveReasonUserDeleted
			archiveDoc["archive_note"] = s.cfg.Note

			if err := s.archive.Put(ctx, store.NewID(), archiveDoc); err != nil {
				result.ErrorCount++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
				continue
			}
		} else {
			log.Info().Str("sale", id).Msg("archive copy already present, completing delete")
		}

		if err := s.sales.Delete(ctx, id); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}

		result.SuccessCount++
	}

	// Zero archived is still a success when every miss was a plain
	// not-found: there was nothing to do, which is distinct from having
	// failed to do it.
	result.Success = result.SuccessCount > 0 ||
		(result.NotFoundCount > 0 && result.ErrorCount == 0)

	log.Info().
		Int("archived", result.SuccessCount).
		Int("not_found", result.NotFoundCount).
		Int("errors", result.ErrorCount).
		Msg("archive batch finished")

	if result.SuccessCount > 0 {
		s.invalidateStats(ctx)
	}
	return result
}

// Categorize stamps a category and its metadata onto each sale that
// still exists. Missing ids are reported, not treated as failures.
func (s *SalesService) Categorize(ctx context.Context, ids []string, category, subcategory, categorizedBy string) (domain.CategorizeResult, error) {
	if category == "" {
		return domain.CategorizeResult{}, domain.ValidationError{Field: "category", Message: "must not be empty"}
	}
	if categorizedBy == "" {
		categorizedBy = s.cfg.ArchivedBy
	}

	result := domain.CategorizeResult{}
	fields := make(map[string]store.Doc)
	metadata := map[string]any{
		"category":       category,
		"subcategory":    subcategory,
		"categorized_at": s.now().UTC().Format(time.RFC3339),
		"categorized_by": categorizedBy,
	}

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		exists, err := s.sales.Exists(ctx, id)
		if err != nil {
			return result, err
		}
		if !exists {
			result.NotFoundCount++
			result.NotFoundIDs = append(result.NotFoundIDs, id)
			continue
		}
		fields[id] = store.Doc{
			"category":          category,
			"category_metadata": metadata,
		}
	}

	if len(fields) == 0 {
		return result, nil
	}

	if err := s.sales.UpdateBatch(ctx, fields); err != nil {
		return result, fmt.Errorf("categorize sales: %w", err)
	}
	result.UpdatedCount = len(fields)
	s.invalidateStats(ctx)
	return result, nil
}

// InitArchive makes sure the archive collection exists.
func (s *SalesService) InitArchive(ctx context.Context) error {
	return s.archive.EnsureCollection(ctx)
}

func (s *SalesService) invalidateStats(ctx context.Context) {
	if err := s.stats.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("dashboard stats cache invalidation failed")
	}
}
