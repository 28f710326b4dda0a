package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/repository"
	"github.com/caisseapp/backoffice/internal/storage"
)

// exportPrefix namespaces every uploaded export; listing and download
// are confined to it.
const exportPrefix = "exports/"

// ExportService writes CSV snapshots of the sales collections to object
// storage.
type ExportService struct {
	sales   repository.SaleRepository
	archive repository.ArchiveRepository
	objects storage.ObjectStorage
	now     func() time.Time
}

func NewExportService(sales repository.SaleRepository, archive repository.ArchiveRepository, objects storage.ObjectStorage) *ExportService {
	return &ExportService{
		sales:   sales,
		archive: archive,
		objects: objects,
		now:     time.Now,
	}
}

// ExportSales renders the active or archived sales set as CSV and
// uploads it. It returns the object key.
func (s *ExportService) ExportSales(ctx context.Context, archived bool) (string, error) {
	if s.objects == nil {
		return "", fmt.Errorf("object storage is not configured")
	}

	var (
		data []byte
		kind string
		err  error
	)
	if archived {
		kind = "archived-sales"
		data, err = s.archivedCSV(ctx)
	} else {
		kind = "sales"
		data, err = s.activeCSV(ctx)
	}
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s%s-%s.csv", exportPrefix, kind, s.now().UTC().Format("20060102-150405"))
	if err := s.objects.UploadObject(ctx, key, data, "text/csv"); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Int("bytes", len(data)).Msg("sales export uploaded")
	return key, nil
}

// ListExports returns the stored export objects.
func (s *ExportService) ListExports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}
	return s.objects.ListObjects(ctx, exportPrefix)
}

// DownloadExport fetches one previously uploaded export by its key.
func (s *ExportService) DownloadExport(ctx context.Context, key string) ([]byte, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}
	if !strings.HasPrefix(key, exportPrefix) || strings.Contains(key, "..") {
		return nil, domain.ValidationError{Field: "key", Message: "must reference an export object"}
	}
	return s.objects.DownloadObject(ctx, key)
}

func (s *ExportService) activeCSV(ctx context.Context) ([]byte, error) {
	sales, err := s.sales.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "product", "category", "register", "date", "seller", "quantity", "price", "total"})
	for _, sale := range sales {
		_ = w.Write([]string{
			sale.ID,
			sale.Product,
			sale.Category,
			sale.Register,
			sale.Date.UTC().Format(time.RFC3339),
			sale.Seller,
			strconv.Itoa(sale.Quantity),
			strconv.FormatFloat(sale.Price, 'f', 2, 64),
			strconv.FormatFloat(sale.Total, 'f', 2, 64),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func (s *ExportService) archivedCSV(ctx context.Context) ([]byte, error) {
	docs, err := s.archive.List(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "original_id", "product", "category", "register", "date", "seller",
		"quantity", "price", "total", "archived_at", "archived_by", "archive_reason", "archive_note"})
	for _, doc := range docs {
		_ = w.Write([]string{
			doc.ID,
			str(doc.Data["original_id"]),
			str(doc.Data["product"]),
			str(doc.Data["category"]),
			str(doc.Data["register"]),
			str(doc.Data["date"]),
			str(doc.Data["seller"]),
			num(doc.Data["quantity"]),
			num(doc.Data["price"]),
			num(doc.Data["total"]),
			str(doc.Data["archived_at"]),
			str(doc.Data["archived_by"]),
			str(doc.Data["archive_reason"]),
			str(doc.Data["archive_note"]),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func num(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	}
	return str(v)
}
