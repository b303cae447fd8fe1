package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/domain/product"
	"github.com/example/letterpress-shop/internal/domain/user"
	"github.com/example/letterpress-shop/internal/email"
	"github.com/example/letterpress-shop/internal/reporting"
)

// AdminCatalog is the catalog persistence the back office mutates.
type AdminCatalog interface {
	Catalog
	CreateProduct(ctx context.Context, p *product.Product) error
	UpdateProduct(ctx context.Context, p *product.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// UserDirectory lists accounts for the back office.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
}

// CheckoutMaintenance purges stale pending checkouts.
type CheckoutMaintenance interface {
	PurgeStaleCheckouts(ctx context.Context, olderThan time.Time) (int, error)
}

// ApprovalMailer sends the account-approved notice. May be nil.
type ApprovalMailer interface {
	SendAccountApproved(to, name string) error
}

// AdminHandlers serves the back-office routes. All of them sit behind the
// admin role middleware.
type AdminHandlers struct {
	orderService *order.Service
	userService  *user.Service
	catalog      AdminCatalog
	users        UserDirectory
	checkouts    CheckoutMaintenance
	reports      *reporting.Store // nil when reporting is not configured
	mailer       ApprovalMailer
}

func NewAdminHandlers(
	orderService *order.Service,
	userService *user.Service,
	catalog AdminCatalog,
	users UserDirectory,
	checkouts CheckoutMaintenance,
	reports *reporting.Store,
	mailer ApprovalMailer,
) *AdminHandlers {
	return &AdminHandlers{
		orderService: orderService,
		userService:  userService,
		catalog:      catalog,
		users:        users,
		checkouts:    checkouts,
		reports:      reports,
		mailer:       mailer,
	}
}

// Order administration

func (h *AdminHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respondJSONError(w, "Reporting is not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	filter := reporting.OrderFilter{
		UserID: q.Get("user_id"),
		Status: order.Status(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = t
		}
	}

	rows, err := h.reports.ListOrders(filter)
	if err != nil {
		respondJSONError(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *AdminHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := adminOrderID(r.URL.Path, "/status")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orderService.UpdateStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		respondOrderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *AdminHandlers) UpdateOrderShipping(w http.ResponseWriter, r *http.Request) {
	id := adminOrderID(r.URL.Path, "/shipping")

	var req order.ShippingInfo
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orderService.UpdateShipping(r.Context(), id, req)
	if err != nil {
		respondOrderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *AdminHandlers) UpdateOrderPaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := adminOrderID(r.URL.Path, "/payment-status")

	var req struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orderService.UpdatePaymentStatus(r.Context(), id, order.PaymentStatus(req.PaymentStatus))
	if err != nil {
		if errors.Is(err, order.ErrUnknownPaymentStatus) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondOrderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *AdminHandlers) UpdateOrderNotes(w http.ResponseWriter, r *http.Request) {
	id := adminOrderID(r.URL.Path, "/notes")

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.orderService.SetAdminNotes(r.Context(), id, req.Notes)
	if err != nil {
		respondOrderError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func respondOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		respondJSONError(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrOrderDelivered),
		errors.Is(err, order.ErrOrderCancelled):
		respondJSONError(w, err.Error(), http.StatusConflict)
	default:
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

// Customer administration

func (h *AdminHandlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		respondJSONError(w, "Failed to list customers", http.StatusInternalServerError)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *AdminHandlers) ApproveCustomer(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/admin/customers/"), "/approve")

	u, err := h.userService.Approve(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			respondJSONError(w, "Customer not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to approve customer", http.StatusInternalServerError)
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendAccountApproved(u.Email, u.Name); err != nil {
			log.Printf("[Admin] Failed to send approval email to %s: %v", u.Email, err)
		}
	}

	respondJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *AdminHandlers) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/admin/customers/"), "/deactivate")

	if err := h.userService.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			respondJSONError(w, "Customer not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to deactivate customer", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Customer deactivated"})
}

// Catalog administration

func (h *AdminHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p product.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := p.Validate(); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	p.ID = uuid.New().String()
	if p.Slug == "" {
		p.Slug = product.Slugify(p.Name)
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := h.catalog.CreateProduct(r.Context(), &p); err != nil {
		respondJSONError(w, "Failed to create product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, &p)
}

func (h *AdminHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/admin/products/")

	existing, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load product", http.StatusInternalServerError)
		return
	}

	var p product.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	if err := p.Validate(); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.catalog.UpdateProduct(r.Context(), &p); err != nil {
		respondJSONError(w, "Failed to update product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, &p)
}

func (h *AdminHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/admin/products/")

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// Reports

func (h *AdminHandlers) CustomerReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respondJSONError(w, "Reporting is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	summaries, err := h.reports.CustomerSummaries(limit)
	if err != nil {
		respondJSONError(w, "Failed to build customer report", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (h *AdminHandlers) RevenueReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respondJSONError(w, "Reporting is not configured", http.StatusServiceUnavailable)
		return
	}

	since := time.Now().AddDate(0, 0, -30)
	if v := r.URL.Query().Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = t
		}
	}

	points, err := h.reports.RevenueByDay(since)
	if err != nil {
		respondJSONError(w, "Failed to build revenue report", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, points)
}

// Maintenance

// PurgeCheckouts removes pending checkouts older than the retention window.
// Completed checkouts are never purged.
func (h *AdminHandlers) PurgeCheckouts(w http.ResponseWriter, r *http.Request) {
	olderThan := 24 * time.Hour
	if v := r.URL.Query().Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			respondJSONError(w, "Invalid older_than duration", http.StatusBadRequest)
			return
		}
		olderThan = d
	}

	purged, err := h.checkouts.PurgeStaleCheckouts(r.Context(), time.Now().Add(-olderThan))
	if err != nil {
		respondJSONError(w, "Failed to purge checkouts", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"purged": purged})
}

func adminOrderID(path, suffix string) string {
	return strings.TrimSuffix(extractPathParam(path, "/api/admin/orders/"), suffix)
}

var _ ApprovalMailer = (*email.Service)(nil)
