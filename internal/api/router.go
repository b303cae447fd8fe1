package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/example/letterpress-shop/internal/api/middleware"
	"github.com/example/letterpress-shop/internal/auth"
	"github.com/example/letterpress-shop/internal/domain/user"
)

// NewRouter wires the storefront, auth, and back-office routes. The webhook
// route carries no auth middleware: the payment platform authenticates with
// its signature header instead.
func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, adminHandlers *AdminHandlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.AuthMiddleware(jwtService)
	requireApproved := middleware.RequireApproved()
	requireAdmin := middleware.RequireRole(user.RoleAdmin)

	// Auth
	mux.HandleFunc("/api/auth/register", methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: authHandlers.Register,
	}))
	mux.HandleFunc("/api/auth/login", methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: authHandlers.Login,
	}))
	mux.HandleFunc("/api/auth/logout", methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: authHandlers.Logout,
	}))
	mux.HandleFunc("/api/auth/refresh", methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: authHandlers.Refresh,
	}))
	mux.Handle("/api/auth/me", requireAuth(methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: authHandlers.Me,
	})))

	// Products (public)
	mux.HandleFunc("/api/products", methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: handlers.GetProducts,
	}))
	mux.HandleFunc("/api/products/", methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: handlers.GetProduct,
	}))

	// Cart
	mux.Handle("/api/cart", requireAuth(methodHandler(map[string]http.HandlerFunc{
		http.MethodGet:    handlers.GetCart,
		http.MethodDelete: handlers.ClearCart,
	})))
	mux.Handle("/api/cart/items", requireAuth(methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: handlers.AddToCart,
	})))
	mux.Handle("/api/cart/items/", requireAuth(methodHandler(map[string]http.HandlerFunc{
		http.MethodPatch:  handlers.UpdateCartItem,
		http.MethodDelete: handlers.RemoveCartItem,
	})))

	// Checkout. Session creation is gated on wholesale approval.
	mux.Handle("/api/checkout/session", requireAuth(requireApproved(methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: handlers.CreateCheckoutSession,
	}))))
	mux.Handle("/api/checkout/confirm", requireAuth(methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: handlers.ConfirmOrder,
	})))

	// Payment platform webhook (signature-authenticated)
	mux.HandleFunc("/api/webhooks/stripe", methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: handlers.HandleWebhook,
	}))

	// Orders
	mux.Handle("/api/orders", requireAuth(methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: handlers.GetOrders,
	})))
	mux.Handle("/api/orders/", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/invoice") && r.Method == http.MethodGet:
			handlers.GetInvoice(w, r)
		case r.Method == http.MethodGet:
			handlers.GetOrder(w, r)
		default:
			respondJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// Back office
	admin := func(h http.Handler) http.Handler { return requireAuth(requireAdmin(h)) }

	mux.Handle("/api/admin/orders", admin(methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: adminHandlers.ListOrders,
	})))
	mux.Handle("/api/admin/orders/", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		// "/payment-status" must be matched before the "/status" suffix.
		case strings.HasSuffix(path, "/payment-status") && r.Method == http.MethodPatch:
			adminHandlers.UpdateOrderPaymentStatus(w, r)
		case strings.HasSuffix(path, "/status") && r.Method == http.MethodPatch:
			adminHandlers.UpdateOrderStatus(w, r)
		case strings.HasSuffix(path, "/shipping") && r.Method == http.MethodPatch:
			adminHandlers.UpdateOrderShipping(w, r)
		case strings.HasSuffix(path, "/notes") && r.Method == http.MethodPatch:
			adminHandlers.UpdateOrderNotes(w, r)
		default:
			respondJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/admin/customers", admin(methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: adminHandlers.ListCustomers,
	})))
	mux.Handle("/api/admin/customers/", admin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/approve") && r.Method == http.MethodPost:
			adminHandlers.ApproveCustomer(w, r)
		case strings.HasSuffix(path, "/deactivate") && r.Method == http.MethodPost:
			adminHandlers.DeactivateCustomer(w, r)
		default:
			respondJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/admin/products", admin(methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: adminHandlers.CreateProduct,
	})))
	mux.Handle("/api/admin/products/", admin(methodHandler(map[string]http.HandlerFunc{
		http.MethodPut:    adminHandlers.UpdateProduct,
		http.MethodDelete: adminHandlers.DeleteProduct,
	})))

	mux.Handle("/api/admin/reports/customers", admin(methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: adminHandlers.CustomerReport,
	})))
	mux.Handle("/api/admin/reports/revenue", admin(methodHandler(map[string]http.HandlerFunc{
		http.MethodGet: adminHandlers.RevenueReport,
	})))

	mux.Handle("/api/admin/checkouts/purge", admin(methodHandler(map[string]http.HandlerFunc{
		http.MethodPost: adminHandlers.PurgeCheckouts,
	})))

	return withLogging(mux)
}

func methodHandler(methods map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := methods[r.Method]; ok {
			h(w, r)
			return
		}
		respondJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
