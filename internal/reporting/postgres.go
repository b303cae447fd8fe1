// Package reporting maintains a PostgreSQL read model of orders for the back
// office: filtered listings and per-customer summaries that the document
// store cannot answer efficiently.
package reporting

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/letterpress-shop/internal/domain/order"
)

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Store reads and writes the report_orders read model.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the read-model tables when they do not exist yet. The
// projector owns the schema: it is the only writer.
func (s *Store) EnsureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS report_orders (
			id             TEXT PRIMARY KEY,
			order_number   TEXT NOT NULL,
			user_id        TEXT NOT NULL,
			user_email     TEXT NOT NULL,
			status         TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			items          JSONB NOT NULL,
			subtotal       BIGINT NOT NULL,
			discount       BIGINT NOT NULL,
			total          BIGINT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS report_orders_user_idx ON report_orders (user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS report_orders_status_idx ON report_orders (status);
	`)
	return err
}

// UpsertOrder writes one order row, replacing the mutable columns on conflict.
func (s *Store) UpsertOrder(o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO report_orders
			(id, order_number, user_id, user_email, status, payment_status,
			 items, subtotal, discount, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payment_status = EXCLUDED.payment_status,
			items = EXCLUDED.items,
			total = EXCLUDED.total,
			updated_at = EXCLUDED.updated_at
	`, o.ID, o.OrderNumber, o.UserID, o.UserEmail, string(o.Status), string(o.PaymentStatus),
		itemsJSON, o.Subtotal, o.Discount, o.Total, o.CreatedAt, o.UpdatedAt)
	return err
}

// OrderFilter narrows ListOrders. Zero values mean no constraint.
type OrderFilter struct {
	UserID string
	Status order.Status
	Since  time.Time
	Until  time.Time
	Limit  int
}

// OrderRow is one row of the back-office order listing.
type OrderRow struct {
	ID          string       `json:"id"`
	OrderNumber string       `json:"order_number"`
	UserID      string       `json:"user_id"`
	UserEmail   string       `json:"user_email"`
	Status      string       `json:"status"`
	Items       []order.Item `json:"items"`
	Total       int64        `json:"total"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ListOrders returns orders newest first, narrowed by the filter.
func (s *Store) ListOrders(f OrderFilter) ([]OrderRow, error) {
	query := `
		SELECT id, order_number, user_id, user_email, status, items, total, created_at
		FROM report_orders WHERE 1=1`
	args := []any{}

	if f.UserID != "" {
		args = append(args, f.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var r OrderRow
		var itemsJSON []byte
		if err := rows.Scan(&r.ID, &r.OrderNumber, &r.UserID, &r.UserEmail, &r.Status, &itemsJSON, &r.Total, &r.CreatedAt); err != nil {
			log.Printf("[Reporting] Error scanning order row: %v", err)
			continue
		}
		if err := json.Unmarshal(itemsJSON, &r.Items); err != nil {
			log.Printf("[Reporting] Error decoding items for order %s: %v", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CustomerSummary aggregates one wholesale customer's order history.
type CustomerSummary struct {
	UserID     string     `json:"user_id"`
	UserEmail  string     `json:"user_email"`
	OrderCount int        `json:"order_count"`
	TotalSpent int64      `json:"total_spent"`
	LastOrder  *time.Time `json:"last_order,omitempty"`
}

// CustomerSummaries ranks customers by lifetime spend. Cancelled and refunded
// orders are excluded from the totals.
func (s *Store) CustomerSummaries(limit int) ([]CustomerSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT user_id, user_email, COUNT(*), COALESCE(SUM(total), 0), MAX(created_at)
		FROM report_orders
		WHERE status NOT IN ('cancelled', 'refunded')
		GROUP BY user_id, user_email
		ORDER BY SUM(total) DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CustomerSummary
	for rows.Next() {
		var c CustomerSummary
		var last sql.NullTime
		if err := rows.Scan(&c.UserID, &c.UserEmail, &c.OrderCount, &c.TotalSpent, &last); err != nil {
			log.Printf("[Reporting] Error scanning customer summary: %v", err)
			continue
		}
		if last.Valid {
			c.LastOrder = &last.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RevenueByDay sums paid order totals per calendar day over the window.
type RevenuePoint struct {
	Day     time.Time `json:"day"`
	Orders  int       `json:"orders"`
	Revenue int64     `json:"revenue"`
}

func (s *Store) RevenueByDay(since time.Time) ([]RevenuePoint, error) {
	rows, err := s.db.Query(`
		SELECT date_trunc('day', created_at) AS day, COUNT(*), COALESCE(SUM(total), 0)
		FROM report_orders
		WHERE payment_status = 'paid' AND created_at >= $1
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RevenuePoint
	for rows.Next() {
		var p RevenuePoint
		if err := rows.Scan(&p.Day, &p.Orders, &p.Revenue); err != nil {
			log.Printf("[Reporting] Error scanning revenue point: %v", err)
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
