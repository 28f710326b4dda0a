package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/repository"
	"github.com/caisseapp/backoffice/internal/storage"
	"github.com/caisseapp/backoffice/internal/store"
)

type memObjectStorage struct {
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: make(map[string][]byte)}
}

func (m *memObjectStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memObjectStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memObjectStorage) DownloadObject(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return data, nil
}

func newExportFixture(t *testing.T) (*ExportService, *store.MemoryStore, *memObjectStorage) {
	t.Helper()
	mem := store.NewMemoryStore()
	objects := newMemObjectStorage()
	svc := NewExportService(
		repository.NewSaleRepository(mem),
		repository.NewArchiveRepository(mem),
		objects,
	)
	return svc, mem, objects
}

func TestExportSalesUploadsCSV(t *testing.T) {
	svc, mem, objects := newExportFixture(t)
	ctx := context.Background()

	seedSale(t, mem, "s1", store.Doc{
		"product": "Espresso", "category": "Drinks", "register": "R1",
		"seller": "alice", "quantity": float64(2), "price": 2.5, "total": 5.0,
		"date": "2025-07-01T10:00:00Z",
	})

	key, err := svc.ExportSales(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, "exports/sales-") || !strings.HasSuffix(key, ".csv") {
		t.Errorf("key = %q", key)
	}

	data := objects.objects[key]
	if data == nil {
		t.Fatal("nothing uploaded under the returned key")
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv has %d lines, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,product,category") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Espresso") || !strings.Contains(lines[1], "5.00") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestExportArchivedSalesIncludesAudit(t *testing.T) {
	svc, mem, objects := newExportFixture(t)
	ctx := context.Background()

	if err := mem.Set(ctx, store.CollectionArchivedSales, "a1", store.Doc{
		"product": "Espresso", "quantity": float64(1), "price": 2.5, "total": 2.5,
		"original_id": "s1", "archived_at": "2025-07-05T09:00:00Z",
		"archived_by": "alice", "archive_reason": "user_deleted",
	}); err != nil {
		t.Fatal(err)
	}

	key, err := svc.ExportSales(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, "exports/archived-sales-") {
		t.Errorf("key = %q", key)
	}

	csv := string(objects.objects[key])
	if !strings.Contains(csv, "original_id") || !strings.Contains(csv, "archived_by") {
		t.Error("archived export must carry the audit columns")
	}
	if !strings.Contains(csv, "alice") || !strings.Contains(csv, "user_deleted") {
		t.Errorf("csv = %q", csv)
	}
}

func TestListExports(t *testing.T) {
	svc, _, objects := newExportFixture(t)
	ctx := context.Background()

	objects.objects["exports/sales-1.csv"] = []byte("a")
	objects.objects["other/file.txt"] = []byte("b")

	listed, err := svc.ListExports(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed = %d objects, want only the exports/ prefix", len(listed))
	}
	if listed[0].Key != "exports/sales-1.csv" || listed[0].Size != 1 {
		t.Errorf("entry = %+v", listed[0])
	}
}

func TestDownloadExport(t *testing.T) {
	svc, _, objects := newExportFixture(t)
	ctx := context.Background()

	objects.objects["exports/sales-1.csv"] = []byte("id,product\n")

	data, err := svc.DownloadExport(ctx, "exports/sales-1.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "id,product\n" {
		t.Errorf("data = %q", data)
	}
}

func TestDownloadExportRejectsForeignKeys(t *testing.T) {
	svc, _, _ := newExportFixture(t)
	ctx := context.Background()

	for _, key := range []string{"", "other/file.txt", "exports/../secrets"} {
		_, err := svc.DownloadExport(ctx, key)
		var verr domain.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("DownloadExport(%q) err = %v, want ValidationError", key, err)
		}
	}
}
