package service

import (
	"context"
	"errors"
	"testing"

	"github.com/caisseapp/backoffice/internal/config"
	"github.com/caisseapp/backoffice/internal/domain"
	"github.com/caisseapp/backoffice/internal/repository"
	"github.com/caisseapp/backoffice/internal/store"
)

func newSalesFixture(t *testing.T) (*SalesService, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	svc := NewSalesService(
		repository.NewSaleRepository(mem),
		repository.NewArchiveRepository(mem),
		nil,
		config.ArchiveConfig{ArchivedBy: "tester", Note: "test archive"},
	)
	return svc, mem
}

func seedSale(t *testing.T, mem *store.MemoryStore, id string, doc store.Doc) {
	t.Helper()
	if err := mem.Set(context.Background(), store.CollectionSales, id, doc); err != nil {
		t.Fatal(err)
	}
}

func TestArchiveSalesMixedBatch(t *testing.T) {
	svc, mem := newSalesFixture(t)
	ctx := context.Background()

	seedSale(t, mem, "s1", store.Doc{
		"product": "Espresso", "quantity": float64(2), "price": 2.5,
		"date": "2025-07-01T10:00:00Z",
	})

	result := svc.ArchiveSales(ctx, []string{"s1", "missing"}, "alice")

	if !result.Success {
		t.Error("batch with one archived and one not-found must succeed")
	}
	if result.SuccessCount != 1 || result.NotFoundCount != 1 || result.ErrorCount != 0 {
		t.Errorf("counts = %d/%d/%d, want 1/1/0",
			result.SuccessCount, result.NotFoundCount, result.ErrorCount)
	}

	// Original must be gone.
	if _, err := mem.Get(ctx, store.CollectionSales, "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Error("original sale should have been deleted")
	}

	// The copy carries the audit trailer plus the original fields.
	docs, err := mem.Query(ctx, store.CollectionArchivedSales, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("archive has %d docs, want 1", len(docs))
	}
	archived := docs[0].Data
	if archived["original_id"] != "s1" {
		t.Errorf("original_id = %v", archived["original_id"])
	}
	if archived["archived_by"] != "alice" {
		t.Errorf("archived_by = %v, want the caller, not the config default", archived["archived_by"])
	}
	if archived["archive_reason"] != domain.ArchiveReasonUserDeleted {
		t.Errorf("archive_reason = %v", archived["archive_reason"])
	}
	if archived["product"] != "Espresso" {
		t.Error("original fields must be copied verbatim")
	}
}

func TestArchiveSalesEmptyInput(t *testing.T) {
	svc, _ := newSalesFixture(t)

	for _, ids := range [][]string{nil, {}, {"", "  "}} {
		result := svc.ArchiveSales(context.Background(), ids, "")
		if result.Success {
			t.Errorf("ArchiveSales(%q) succeeded, want failure", ids)
		}
		if len(result.Errors) == 0 {
			t.Error("expected an explanatory error message")
		}
	}
}

func TestArchiveSalesAllNotFound(t *testing.T) {
	svc, _ := newSalesFixture(t)

	result := svc.ArchiveSales(context.Background(), []string{"a", "b"}, "")
	if !result.Success {
		t.Error("all not-found with zero errors counts as success")
	}
	if result.NotFoundCount != 2 || result.SuccessCount != 0 {
		t.Errorf("counts = %d/%d", result.SuccessCount, result.NotFoundCount)
	}
}

func TestArchiveSalesIdempotentRetry(t *testing.T) {
	svc, mem := newSalesFixture(t)
	ctx := context.Background()

	// Simulate a crash between copy and delete: the archive copy exists
	// and the original is still in the active set.
	seedSale(t, mem, "s1", store.Doc{"product": "Espresso", "quantity": float64(1), "price": 2.5})
	if err := mem.Set(ctx, store.CollectionArchivedSales, "arch1", store.Doc{
		"product": "Espresso", "original_id": "s1",
	}); err != nil {
		t.Fatal(err)
	}

	result := svc.ArchiveSales(ctx, []string{"s1"}, "")
	if !result.Success || result.SuccessCount != 1 {
		t.Fatalf("retry result = %+v", result)
	}

	// No duplicate copy; the retry only completed the delete.
	docs, _ := mem.Query(ctx, store.CollectionArchivedSales, nil, nil)
	if len(docs) != 1 {
		t.Errorf("archive has %d docs after retry, want 1", len(docs))
	}
	if _, err := mem.Get(ctx, store.CollectionSales, "s1"); !errors.Is(err, store.ErrNotFound) {
		t.Error("retry should have deleted the original")
	}
}

func TestArchiveSalesDefaultActor(t *testing.T) {
	svc, mem := newSalesFixture(t)
	ctx := context.Background()

	seedSale(t, mem, "s1", store.Doc{"product": "Espresso", "quantity": float64(1), "price": 2.5})

	svc.ArchiveSales(ctx, []string{"s1"}, "")

	docs, _ := mem.Query(ctx, store.CollectionArchivedSales, nil, nil)
	if len(docs) != 1 {
		t.Fatal("expected one archived doc")
	}
	if docs[0].Data["archived_by"] != "tester" {
		t.Errorf("archived_by = %v, want the configured default", docs[0].Data["archived_by"])
	}
	if docs[0].Data["archive_note"] != "test archive" {
		t.Errorf("archive_note = %v", docs[0].Data["archive_note"])
	}
}

func TestAddValidates(t *testing.T) {
	svc, _ := newSalesFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		sale domain.SaleRecord
	}{
		{"empty product", domain.SaleRecord{Quantity: 1, Price: 1}},
		{"zero quantity", domain.SaleRecord{Product: "X", Quantity: 0, Price: 1}},
		{"negative price", domain.SaleRecord{Product: "X", Quantity: 1, Price: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, []domain.SaleRecord{tt.sale})
			var verr domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestAddPersistsBatch(t *testing.T) {
	svc, mem := newSalesFixture(t)
	ctx := context.Background()

	count, err := svc.Add(ctx, []domain.SaleRecord{
		{Product: "Espresso", Category: "Drinks", Quantity: 2, Price: 2.5, Total: 5},
		{Product: "Muffin", Category: "Food", Quantity: 1, Price: 3.0, Total: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	docs, _ := mem.Query(ctx, store.CollectionSales, nil, nil)
	if len(docs) != 2 {
		t.Errorf("stored = %d docs, want 2", len(docs))
	}
}

func TestUpdateMissingSale(t *testing.T) {
	svc, _ := newSalesFixture(t)

	ok, err := svc.Update(context.Background(), "nope", store.Doc{"price": 1.0})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("updating a missing sale must report false, not an error")
	}
}

func TestUpdateStampsUpdatedAt(t *testing.T) {
	svc, mem := newSalesFixture(t)
	ctx := context.Background()

	seedSale(t, mem, "s1", store.Doc{"product": "Espresso", "quantity": float64(1), "price": 2.5})

	ok, err := svc.Update(ctx, "s1", store.Doc{"price": 3.0})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}

	doc, _ := mem.Get(ctx, store.CollectionSales, "s1")
	if doc["price"] != 3.0 {
		t.Errorf("price = %v, want 3", doc["price"])
	}
	if doc["updatedAt"] == nil {
		t.Error("updatedAt not stamped")
	}
	if doc["product"] != "Espresso" {
		t.Error("untouched fields must survive a partial update")
	}
}

func TestCategorize(t *testing.T) {
	svc, mem := newSalesFixture(t)
	ctx := context.Background()

	seedSale(t, mem, "s1", store.Doc{"product": "Espresso", "quantity": float64(1), "price": 2.5})

	result, err := svc.Categorize(ctx, []string{"s1", "missing"}, "Drinks", "Hot", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if result.UpdatedCount != 1 || result.NotFoundCount != 1 {
		t.Errorf("result = %+v", result)
	}

	doc, _ := mem.Get(ctx, store.CollectionSales, "s1")
	if doc["category"] != "Drinks" {
		t.Errorf("category = %v", doc["category"])
	}
	meta, ok := doc["category_metadata"].(map[string]any)
	if !ok {
		t.Fatal("missing category_metadata")
	}
	if meta["subcategory"] != "Hot" || meta["categorized_by"] != "alice" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestCategorizeRequiresCategory(t *testing.T) {
	svc, _ := newSalesFixture(t)

	_, err := svc.Categorize(context.Background(), []string{"s1"}, "", "", "")
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestInitArchiveLeavesNoMarker(t *testing.T) {
	svc, mem := newSalesFixture(t)
	ctx := context.Background()

	if err := svc.InitArchive(ctx); err != nil {
		t.Fatal(err)
	}
	docs, _ := mem.Query(ctx, store.CollectionArchivedSales, nil, nil)
	if len(docs) != 0 {
		t.Errorf("archive holds %d docs after init, want 0", len(docs))
	}
}
