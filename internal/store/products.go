package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/models"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	ImageURL    string
}

type UpdateProductRequest struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	ImageURL    *string
	IsActive    *bool
}

type ProductFilter struct {
	Search          string
	Category        string
	IncludeInactive bool
}

const productColumns = `id, name, description, price, stock, category, image_url, is_active, created_at, updated_at, version`

func scanProduct(row *sql.Row) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Category,
		&product.ImageURL,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	query := `
		INSERT INTO products (name, description, price, stock, category, image_url, is_active, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		req.Name, req.Description, req.Price, req.Stock, req.Category, req.ImageURL))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product, err := scanProduct(db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, database.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func UpdateProduct(ctx context.Context, db *sql.DB, id int64, req UpdateProductRequest) (*models.Product, error) {
	var product *models.Product

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current := &models.Product{}
		err := tx.QueryRowContext(ctx,
			`SELECT name, description, price, stock, category, image_url, is_active
			 FROM products WHERE id = $1 FOR UPDATE`,
			id).Scan(
			&current.Name,
			&current.Description,
			&current.Price,
			&current.Stock,
			&current.Category,
			&current.ImageURL,
			&current.IsActive,
		)
		if err == sql.ErrNoRows {
			return database.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}

		if req.Name != nil {
			current.Name = *req.Name
		}
		if req.Description != nil {
			current.Description = *req.Description
		}
		if req.Price != nil {
			current.Price = *req.Price
		}
		if req.Stock != nil {
			current.Stock = *req.Stock
		}
		if req.Category != nil {
			current.Category = *req.Category
		}
		if req.ImageURL != nil {
			current.ImageURL = *req.ImageURL
		}
		if req.IsActive != nil {
			current.IsActive = *req.IsActive
		}

		row := tx.QueryRowContext(ctx,
			`UPDATE products
			 SET name = $1, description = $2, price = $3, stock = $4,
			     category = $5, image_url = $6, is_active = $7,
			     version = version + 1, updated_at = NOW()
			 WHERE id = $8
			 RETURNING `+productColumns,
			current.Name, current.Description, current.Price, current.Stock,
			current.Category, current.ImageURL, current.IsActive, id)

		product, err = scanProduct(row)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return product, nil
}

// AdjustStock sets an absolute stock level guarded by the version column,
// so a concurrent order decrement invalidates a stale admin read.
func AdjustStock(ctx context.Context, db *sql.DB, productID int64, newStock, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET stock = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		newStock, productID, version)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}

// DeleteProduct hard-deletes a product. Products referenced by order lines
// are protected by a RESTRICT foreign key and fail with
// ErrProductReferenced; deactivate those through UpdateProduct instead.
func DeleteProduct(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		if database.ForeignKeyViolation(err) {
			return database.ErrProductReferenced
		}
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, filter ProductFilter, page, pageSize int) (*OffsetPage, error) {
	where := "WHERE 1=1"
	args := []interface{}{}

	if !filter.IncludeInactive {
		where += " AND is_active = TRUE"
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}

	var total int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(
		"SELECT %s FROM products %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		productColumns, where, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.Stock,
			&product.Category,
			&product.ImageURL,
			&product.IsActive,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}

// ListCategories returns the distinct categories of active products.
func ListCategories(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT DISTINCT category FROM products WHERE is_active = TRUE ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}
