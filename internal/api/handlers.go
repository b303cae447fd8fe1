package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/letterpress-shop/internal/api/middleware"
	"github.com/example/letterpress-shop/internal/checkout"
	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/domain/product"
	"github.com/example/letterpress-shop/internal/invoice"
	"github.com/example/letterpress-shop/internal/payment"
)

// maxWebhookBody bounds webhook payload reads.
const maxWebhookBody = 1 << 20

// Catalog is the slice of persistence the storefront product routes need.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	ListProducts(ctx context.Context) ([]*product.Product, error)
}

// OrderReader serves customer-facing order lookups.
type OrderReader interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	GetOrderBySession(ctx context.Context, userID, sessionID string) (*order.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*order.Order, error)
}

// Handlers serves the storefront routes.
type Handlers struct {
	catalog    Catalog
	carts      *cart.Service
	orders     OrderReader
	initiator  *checkout.Initiator
	reconciler *checkout.Reconciler
	poller     *checkout.ConfirmationPoller
	provider   payment.Provider
	invoices   *invoice.Renderer
}

func NewHandlers(
	catalog Catalog,
	carts *cart.Service,
	orders OrderReader,
	initiator *checkout.Initiator,
	reconciler *checkout.Reconciler,
	poller *checkout.ConfirmationPoller,
	provider payment.Provider,
	invoices *invoice.Renderer,
) *Handlers {
	return &Handlers{
		catalog:    catalog,
		carts:      carts,
		orders:     orders,
		initiator:  initiator,
		reconciler: reconciler,
		poller:     poller,
		provider:   provider,
		invoices:   invoices,
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		respondJSONError(w, "Failed to list products", http.StatusInternalServerError)
		return
	}

	// Storefront listings only show active products.
	visible := make([]*product.Product, 0, len(products))
	for _, p := range products {
		if p.Active {
			visible = append(visible, p)
		}
	}
	respondJSON(w, http.StatusOK, visible)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/api/products/")
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	c, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		respondJSONError(w, "Failed to load cart", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		ProductID string `json:"product_id"`
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// The price is snapshotted from the live catalog here; later catalog
	// edits never touch lines already in a cart.
	p, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load product", http.StatusInternalServerError)
		return
	}
	if !p.Active {
		respondJSONError(w, "Product is not available", http.StatusConflict)
		return
	}

	sku := p.SKU
	for _, v := range p.Variants {
		if v.ID == req.VariantID && v.SKU != "" {
			sku = v.SKU
		}
	}

	c, err := h.carts.AddItem(r.Context(), userID, cart.Item{
		ProductID: p.ID,
		VariantID: req.VariantID,
		Name:      p.Name,
		SKU:       sku,
		Image:     p.Image,
		Price:     p.PriceFor(req.VariantID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	index, err := strconv.Atoi(extractPathParam(r.URL.Path, "/api/cart/items/"))
	if err != nil {
		respondJSONError(w, "Invalid item index", http.StatusBadRequest)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), userID, index, req.Quantity)
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	index, err := strconv.Atoi(extractPathParam(r.URL.Path, "/api/cart/items/"))
	if err != nil {
		respondJSONError(w, "Invalid item index", http.StatusBadRequest)
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), userID, index)
	if err != nil {
		respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.carts.Clear(r.Context(), userID); err != nil && !errors.Is(err, cart.ErrCartNotFound) {
		respondJSONError(w, "Failed to clear cart", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		respondJSONError(w, "Cart not found", http.StatusNotFound)
	case errors.Is(err, cart.ErrIndexOutOfRange):
		respondJSONError(w, "Item not found", http.StatusNotFound)
	default:
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	}
}

// Checkout Handlers

// CreateCheckoutSession stages a pending checkout and returns the hosted
// payment redirect. The response shape is {sessionId, url} on success and
// {error} on failure.
func (h *Handlers) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ShippingAddress order.Address `json:"shipping_address"`
		BillingAddress  order.Address `json:"billing_address"`
		Notes           string        `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	c, err := h.carts.Get(r.Context(), claims.UserID)
	if err != nil {
		respondJSONError(w, "Failed to load cart", http.StatusInternalServerError)
		return
	}

	res, err := h.initiator.Initiate(r.Context(), checkout.Request{
		UserID:          claims.UserID,
		UserEmail:       claims.Email,
		Items:           c.Items,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
		Subtotal:        c.Subtotal,
		Discount:        c.Discount,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart),
			errors.Is(err, checkout.ErrMissingAddress),
			errors.Is(err, checkout.ErrBelowMinimum):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			respondJSONError(w, "Failed to create checkout session", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"sessionId": res.SessionID,
		"url":       res.URL,
	})
}

// HandleWebhook receives payment platform events. The signature is verified
// before anything else; an unverified payload is never parsed.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondJSONError(w, "Failed to read payload", http.StatusBadRequest)
		return
	}

	event, err := h.provider.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		respondJSONError(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	// Event types with no reconciliation mapped to them are acknowledged.
	if event.Completed == nil {
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := h.reconciler.HandleCompletedPayment(r.Context(), event.Completed); err != nil {
		// Non-2xx asks the platform to redeliver.
		respondJSONError(w, "Reconciliation failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// ConfirmOrder polls for the order materialized from a completed session.
// It backs the success page the customer lands on after paying.
func (h *Handlers) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondJSONError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	o, err := h.poller.Await(r.Context(), claims.UserID, sessionID)
	if err != nil {
		if errors.Is(err, checkout.ErrConfirmationTimeout) {
			// The payment went through; only the confirmation is late. The
			// success page degrades to a generic thank-you.
			respondJSON(w, http.StatusAccepted, map[string]string{
				"status":  "processing",
				"message": "Your order is being finalized. You will receive a confirmation email shortly.",
			})
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		respondJSONError(w, "Failed to confirm order", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

// Order Handlers

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orders, err := h.orders.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		respondJSONError(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.loadOwnedOrder(w, r, "/api/orders/")
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// GetInvoice renders the order's invoice PDF.
func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(extractPathParam(r.URL.Path, "/api/orders/"), "/invoice")
	o, ok := h.loadOrderByID(w, r, id)
	if !ok {
		return
	}

	data, err := h.invoices.Render(o)
	if err != nil {
		respondJSONError(w, "Failed to render invoice", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invoice-"+o.OrderNumber+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) loadOwnedOrder(w http.ResponseWriter, r *http.Request, prefix string) (*order.Order, bool) {
	id := extractPathParam(r.URL.Path, prefix)
	return h.loadOrderByID(w, r, id)
}

func (h *Handlers) loadOrderByID(w http.ResponseWriter, r *http.Request, id string) (*order.Order, bool) {
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondJSONError(w, "Order not found", http.StatusNotFound)
			return nil, false
		}
		respondJSONError(w, "Failed to load order", http.StatusInternalServerError)
		return nil, false
	}

	// Customers only see their own orders; admins see all.
	if o.UserID != middleware.GetUserID(r.Context()) && !isAdmin(r) {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return nil, false
	}
	return o, true
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// isAdmin checks if the current user has admin role
func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return false
	}
	return claims.Role == "admin"
}
