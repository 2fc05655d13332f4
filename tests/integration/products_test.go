package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/models"
	"github.com/examenapp/examen-api/internal/store"
)

func TestProductCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
		Name:        "Mock Exam Bundle",
		Description: "Ten full-length mock exams",
		Price:       decimal.RequireFromString("24.99"),
		Stock:       40,
		Category:    "exams",
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	if product.ID == 0 {
		t.Error("Product ID should not be 0")
	}
	if !product.IsActive {
		t.Error("New product should be active")
	}
	if product.Version != 1 {
		t.Errorf("New product version should start at 1, got %d", product.Version)
	}

	fetched, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if !fetched.Price.Equal(product.Price) {
		t.Errorf("Expected price %s, got %s", product.Price, fetched.Price)
	}

	newName := "Mock Exam Bundle v2"
	newPrice := decimal.RequireFromString("29.99")
	updated, err := store.UpdateProduct(ctx, db, product.ID, store.UpdateProductRequest{
		Name:  &newName,
		Price: &newPrice,
	})
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("Expected name %q, got %q", newName, updated.Name)
	}
	if !updated.Price.Equal(newPrice) {
		t.Errorf("Expected price %s, got %s", newPrice, updated.Price)
	}
	if updated.Version != product.Version+1 {
		t.Errorf("Update should bump version, got %d", updated.Version)
	}
	if updated.Description != product.Description {
		t.Errorf("Untouched field changed: %q", updated.Description)
	}

	if err := store.DeleteProduct(ctx, db, product.ID); err != nil {
		t.Fatalf("Delete product: %v", err)
	}
	if _, err := store.GetProduct(ctx, db, product.ID); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found after delete, got: %v", err)
	}
	if err := store.DeleteProduct(ctx, db, product.ID); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found on second delete, got: %v", err)
	}
}

func TestDeleteReferencedProduct(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, db, "prodref@example.com")
	product := createTestProduct(t, db, "Highlighter Pack", decimal.NewFromInt(3), 20)

	if _, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
		UserID:          user.ID,
		ShippingAddress: "12 Main St",
		Items:           []store.OrderItemRequest{{ProductID: product.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("Create order: %v", err)
	}

	err := store.DeleteProduct(ctx, db, product.ID)
	if !errors.Is(err, database.ErrProductReferenced) {
		t.Errorf("Expected product referenced error, got: %v", err)
	}

	inactive := false
	deactivated, err := store.UpdateProduct(ctx, db, product.ID, store.UpdateProductRequest{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Deactivate product: %v", err)
	}
	if deactivated.IsActive {
		t.Error("Product should be inactive")
	}
}

func TestAdjustStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	product := createTestProduct(t, db, "Eraser Bulk Box", decimal.NewFromInt(1), 10)

	if err := store.AdjustStock(ctx, db, product.ID, 25, product.Version); err != nil {
		t.Fatalf("Adjust stock: %v", err)
	}

	after, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.Stock != 25 {
		t.Errorf("Expected stock 25, got %d", after.Stock)
	}
	if after.Version != product.Version+1 {
		t.Errorf("Adjust should bump version, got %d", after.Version)
	}

	err = store.AdjustStock(ctx, db, product.ID, 30, product.Version)
	if !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Stale version should fail optimistic lock, got: %v", err)
	}

	unchanged, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if unchanged.Stock != 25 {
		t.Errorf("Stock must not change on lock failure, got %d", unchanged.Stock)
	}
}

func TestListProducts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	createTestProduct(t, db, "Algebra Workbook", decimal.NewFromInt(12), 10)
	createTestProduct(t, db, "Geometry Workbook", decimal.NewFromInt(14), 10)
	retired := createTestProduct(t, db, "Legacy Workbook", decimal.NewFromInt(5), 0)

	inactive := false
	if _, err := store.UpdateProduct(ctx, db, retired.ID, store.UpdateProductRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("Deactivate product: %v", err)
	}

	active, err := store.ListProducts(ctx, db, store.ProductFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("List active products: %v", err)
	}
	if active.Total != 2 {
		t.Errorf("Expected 2 active products, got %d", active.Total)
	}

	all, err := store.ListProducts(ctx, db, store.ProductFilter{IncludeInactive: true}, 1, 10)
	if err != nil {
		t.Fatalf("List all products: %v", err)
	}
	if all.Total != 3 {
		t.Errorf("Expected 3 products, got %d", all.Total)
	}

	matched, err := store.ListProducts(ctx, db, store.ProductFilter{Search: "geometry"}, 1, 10)
	if err != nil {
		t.Fatalf("Search products: %v", err)
	}
	if matched.Total != 1 {
		t.Errorf("Expected 1 search match, got %d", matched.Total)
	}

	products := matched.Items.([]models.Product)
	if len(products) != 1 || products[0].Name != "Geometry Workbook" {
		t.Errorf("Unexpected search result: %+v", products)
	}
}

func TestListCategories(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	for _, p := range []struct {
		name     string
		category string
	}{
		{"Exam Pack A", "exams"},
		{"Exam Pack B", "exams"},
		{"Red Pen", "stationery"},
	} {
		if _, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
			Name:     p.name,
			Price:    decimal.NewFromInt(5),
			Stock:    10,
			Category: p.category,
		}); err != nil {
			t.Fatalf("Create product %s: %v", p.name, err)
		}
	}

	categories, err := store.ListCategories(ctx, db)
	if err != nil {
		t.Fatalf("List categories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("Expected 2 categories, got %d: %v", len(categories), categories)
	}
	if categories[0] != "exams" || categories[1] != "stationery" {
		t.Errorf("Unexpected categories: %v", categories)
	}
}
