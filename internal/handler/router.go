package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/marketplace-sellers/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware маркетплейса продавцов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(custommiddleware.RequestLogger(h.logger, h.opts.Observer))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/healthz", h.Healthz)
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}

	r.Route("/api/seller", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/send-otp", h.SendOTP)
		r.Post("/verify-email", h.VerifyEmail)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.RequireRole(custommiddleware.RoleSeller))

			r.Get("/status", h.Status)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/change-password", h.ChangePassword)

			r.Group(func(r chi.Router) {
				r.Use(h.requireApproved)

				r.Get("/products", h.ListProducts)
				r.Post("/products", h.CreateProduct)
				r.Get("/products/{productID}", h.GetProduct)
				r.Put("/products/{productID}", h.UpdateProduct)
				r.Delete("/products/{productID}", h.DeleteProduct)

				r.Get("/orders", h.ListOrders)
				r.Get("/orders/{orderID}", h.GetOrder)
				r.Put("/orders/{orderID}", h.UpdateOrderStatus)

				r.Get("/withdrawals", h.GetWithdrawals)
				r.Post("/withdrawals", h.Withdraw)

				r.Get("/analytics", h.Analytics)
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", h.AdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(custommiddleware.RequireRole(custommiddleware.RoleAdmin))

			r.Get("/sellers", h.ListSellers)
			r.Get("/sellers/pending-approvals", h.PendingApprovals)
			r.Get("/sellers/{sellerID}", h.GetSeller)
			r.Post("/sellers/{sellerID}/approve", h.ApproveSeller)
			r.Post("/sellers/{sellerID}/reject", h.RejectSeller)
			r.Put("/sellers/{sellerID}/status", h.ChangeSellerStatus)
			r.Get("/sellers/{sellerID}/products", h.SellerProducts)
			r.Get("/sellers/{sellerID}/orders", h.SellerOrders)
			r.Get("/sellers/{sellerID}/analytics", h.SellerAnalytics)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), nil)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), nil)
	})

	return r
}
