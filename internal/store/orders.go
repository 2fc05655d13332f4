package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"

	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/models"
	"github.com/shopspring/decimal"
)

// Order numbers are sequential: a fixed prefix plus a zero-padded counter
// (EXM-00001, EXM-00002, ...). The next number is derived from the latest
// order inside the same serializable transaction as the insert; the unique
// constraint on order_number catches the race and forces a retry.
const (
	orderNumberPrefix = "EXM-"
	orderNumberWidth  = 5
)

var orderNumberPattern = regexp.MustCompile(`^EXM-(\d+)$`)

func formatOrderNumber(n int) string {
	return fmt.Sprintf("%s%0*d", orderNumberPrefix, orderNumberWidth, n)
}

func parseOrderNumber(s string) (int, bool) {
	m := orderNumberPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// queryer is satisfied by both *sql.DB and *sql.Tx so hydration can run
// inside the creating transaction or on the plain connection.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type CreateOrderRequest struct {
	UserID          int64
	ShippingAddress string
	Notes           string
	Items           []OrderItemRequest
}

type OrderItemRequest struct {
	ProductID int64
	Quantity  int
}

type UpdateOrderRequest struct {
	Status          *string
	ShippingAddress *string
	Notes           *string
}

type OrderFilter struct {
	UserID int64
	Status string
}

// CreateOrder places an order as a single atomic unit of work: number
// assignment, order row, one line per item with a price snapshot, and the
// matching stock decrements. Any failure rolls the whole thing back.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	if req.UserID == 0 {
		return nil, database.ErrUserRequired
	}
	if len(req.Items) == 0 {
		return nil, database.ErrItemsRequired
	}
	for _, item := range req.Items {
		if item.ProductID == 0 || item.Quantity < 1 {
			return nil, database.ErrItemsRequired
		}
	}

	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		var active bool
		err := tx.QueryRowContext(ctx,
			"SELECT is_active FROM users WHERE id = $1",
			req.UserID).Scan(&active)
		if err == sql.ErrNoRows {
			return database.ErrUserRequired
		}
		if err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !active {
			return database.ErrUserRequired
		}

		orderNumber, err := nextOrderNumber(ctx, tx)
		if err != nil {
			return err
		}

		var orderID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, order_number, status, total_amount, shipping_address, notes, created_at, updated_at)
			 VALUES ($1, $2, $3, 0, $4, $5, NOW(), NOW())
			 RETURNING id`,
			req.UserID, orderNumber, models.OrderStatusPending,
			req.ShippingAddress, req.Notes).Scan(&orderID)
		if err != nil {
			if database.UniqueViolation(err, "orders_order_number_key") {
				return database.ErrOrderNumberConflict
			}
			return fmt.Errorf("create order: %w", err)
		}

		totalAmount := decimal.Zero

		for _, item := range req.Items {
			var (
				productID int64
				name      string
				price     decimal.Decimal
				stock     int
			)

			err := tx.QueryRowContext(ctx,
				`SELECT id, name, price, stock
				 FROM products
				 WHERE id = $1
				 FOR UPDATE`,
				item.ProductID).Scan(&productID, &name, &price, &stock)
			if err == sql.ErrNoRows {
				return database.ErrProductNotFound
			}
			if err != nil {
				return fmt.Errorf("lock product %d: %w", item.ProductID, err)
			}

			if stock < item.Quantity {
				return &database.InsufficientStockError{
					ProductID:   productID,
					ProductName: name,
					Requested:   item.Quantity,
					Available:   stock,
				}
			}

			subtotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			totalAmount = totalAmount.Add(subtotal)

			_, err = tx.ExecContext(ctx,
				`INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())`,
				orderID, productID, item.Quantity, price, subtotal)
			if err != nil {
				return fmt.Errorf("create order line: %w", err)
			}

			if err := decrementStock(ctx, tx, productID, item.Quantity); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET total_amount = $1, updated_at = NOW() WHERE id = $2`,
			totalAmount, orderID)
		if err != nil {
			return fmt.Errorf("set order total: %w", err)
		}

		order, err = fetchOrder(ctx, tx, orderID)
		return err
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func nextOrderNumber(ctx context.Context, tx *sql.Tx) (string, error) {
	var last string
	err := tx.QueryRowContext(ctx,
		"SELECT order_number FROM orders ORDER BY id DESC LIMIT 1").Scan(&last)
	if err == sql.ErrNoRows {
		return formatOrderNumber(1), nil
	}
	if err != nil {
		return "", fmt.Errorf("read last order number: %w", err)
	}

	n, ok := parseOrderNumber(last)
	if !ok {
		return "", fmt.Errorf("unparseable order number %q", last)
	}
	return formatOrderNumber(n + 1), nil
}

func decrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

// CancelOrder moves a pending order to cancelled and restores every line's
// quantity to its product's stock. Any other starting status fails with
// ErrInvalidOrderState and restores nothing.
func CancelOrder(ctx context.Context, db *sql.DB, id int64) error {
	return database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM orders WHERE id = $1 FOR UPDATE",
			id).Scan(&status)
		if err == sql.ErrNoRows {
			return database.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if status != models.OrderStatusPending {
			return database.ErrInvalidOrderState
		}

		rows, err := tx.QueryContext(ctx,
			"SELECT product_id, quantity FROM order_lines WHERE order_id = $1 ORDER BY id",
			id)
		if err != nil {
			return fmt.Errorf("load order lines: %w", err)
		}
		defer rows.Close()

		type restore struct {
			productID int64
			quantity  int
		}
		var restores []restore
		for rows.Next() {
			var r restore
			if err := rows.Scan(&r.productID, &r.quantity); err != nil {
				return fmt.Errorf("scan order line: %w", err)
			}
			restores = append(restores, r)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}

		for _, r := range restores {
			_, err := tx.ExecContext(ctx,
				`UPDATE products
				 SET stock = stock + $1,
				     version = version + 1,
				     updated_at = NOW()
				 WHERE id = $2`,
				r.quantity, r.productID)
			if err != nil {
				return fmt.Errorf("restore stock for product %d: %w", r.productID, err)
			}
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
			models.OrderStatusCancelled, id)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}

		return nil
	})
}

// UpdateOrder applies a metadata-only patch: status, shipping address,
// notes. Line items and stock are never touched here. Status changes must
// follow the lifecycle chain; patching to cancelled is rejected so stock
// restore cannot be bypassed.
func UpdateOrder(ctx context.Context, db *sql.DB, id int64, req UpdateOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var (
			status          string
			shippingAddress string
			notes           sql.NullString
		)
		err := tx.QueryRowContext(ctx,
			"SELECT status, shipping_address, notes FROM orders WHERE id = $1 FOR UPDATE",
			id).Scan(&status, &shippingAddress, &notes)
		if err == sql.ErrNoRows {
			return database.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}

		if req.Status != nil && *req.Status != status {
			if !models.ValidOrderStatus(*req.Status) {
				return database.ErrInvalidOrderState
			}
			if !models.CanTransition(status, *req.Status) {
				return database.ErrInvalidOrderState
			}
			status = *req.Status
		}
		if req.ShippingAddress != nil {
			shippingAddress = *req.ShippingAddress
		}
		if req.Notes != nil {
			notes = sql.NullString{String: *req.Notes, Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1, shipping_address = $2, notes = $3, updated_at = NOW()
			 WHERE id = $4`,
			status, shippingAddress, notes, id)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		order, err = fetchOrder(ctx, tx, id)
		return err
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	return fetchOrder(ctx, db, id)
}

func fetchOrder(ctx context.Context, q queryer, id int64) (*models.Order, error) {
	order := &models.Order{User: &models.UserSummary{}}
	var notes sql.NullString

	err := q.QueryRowContext(ctx,
		`SELECT o.id, o.user_id, o.order_number, o.status, o.total_amount,
		        o.shipping_address, o.notes, o.created_at, o.updated_at,
		        u.id, u.email, u.first_name, u.last_name
		 FROM orders o
		 JOIN users u ON u.id = o.user_id
		 WHERE o.id = $1`,
		id).Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.Status,
		&order.TotalAmount,
		&order.ShippingAddress,
		&notes,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.User.ID,
		&order.User.Email,
		&order.User.FirstName,
		&order.User.LastName,
	)
	if err == sql.ErrNoRows {
		return nil, database.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	order.Notes = notes.String

	rows, err := q.QueryContext(ctx,
		`SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.unit_price, l.subtotal, l.created_at
		 FROM order_lines l
		 JOIN products p ON p.id = l.product_id
		 WHERE l.order_id = $1
		 ORDER BY l.id`,
		id)
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.ProductName,
			&line.Quantity,
			&line.UnitPrice,
			&line.Subtotal,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return order, nil
}

// ListOrders returns orders newest-first with owner summaries, optionally
// filtered by user and status.
func ListOrders(ctx context.Context, db *sql.DB, filter OrderFilter, page, pageSize int) (*OffsetPage, error) {
	where := "WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		where += fmt.Sprintf(" AND o.user_id = $%d", len(args))
	}
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND o.status = $%d", len(args))
	}

	var total int64
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders o "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(
		`SELECT o.id, o.user_id, o.order_number, o.status, o.total_amount,
		        o.shipping_address, o.notes, o.created_at, o.updated_at,
		        u.id, u.email, u.first_name, u.last_name
		 FROM orders o
		 JOIN users u ON u.id = o.user_id
		 %s
		 ORDER BY o.created_at DESC, o.id DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order := models.Order{User: &models.UserSummary{}}
		var notes sql.NullString
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.OrderNumber,
			&order.Status,
			&order.TotalAmount,
			&order.ShippingAddress,
			&notes,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.User.ID,
			&order.User.Email,
			&order.User.FirstName,
			&order.User.LastName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Notes = notes.String
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(orders, total, page, pageSize), nil
}

// ListUserOrdersCursor is the keyset-paginated listing used by the mobile
// client's infinite scroll.
func ListUserOrdersCursor(ctx context.Context, db *sql.DB, userID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT id, order_number, status, total_amount, shipping_address, notes, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order := models.Order{UserID: userID}
		var notes sql.NullString
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.Status,
			&order.TotalAmount,
			&order.ShippingAddress,
			&notes,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Notes = notes.String
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

type OrderStatusCount struct {
	Status  string          `json:"status"`
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type OrderStats struct {
	ByStatus     []OrderStatusCount `json:"by_status"`
	TotalOrders  int64              `json:"total_orders"`
	TotalRevenue decimal.Decimal    `json:"total_revenue"`
}

func GetOrderStats(ctx context.Context, db *sql.DB) (*OrderStats, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		 FROM orders
		 GROUP BY status
		 ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	defer rows.Close()

	stats := &OrderStats{TotalRevenue: decimal.Zero}
	for rows.Next() {
		var sc OrderStatusCount
		if err := rows.Scan(&sc.Status, &sc.Count, &sc.Revenue); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByStatus = append(stats.ByStatus, sc)
		stats.TotalOrders += sc.Count
		stats.TotalRevenue = stats.TotalRevenue.Add(sc.Revenue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}
