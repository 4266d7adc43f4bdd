// Package handler содержит HTTP-обработчики API маркетплейса продавцов.
package handler

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-sellers/internal/middleware"
	"github.com/mmeshcher/marketplace-sellers/internal/model"
	"github.com/mmeshcher/marketplace-sellers/internal/ratelimit"
	"github.com/mmeshcher/marketplace-sellers/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Signup(ctx context.Context, in service.SignupInput) (*service.SignupResult, error)
	ResendOTP(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) (*model.Seller, error)
	Login(ctx context.Context, email, password string) (*model.Seller, error)
	AuthorizeSeller(ctx context.Context, sellerID string) (*model.Seller, error)
	RequireApproved(ctx context.Context, sellerID string) (*model.Seller, error)
	UpdateProfile(ctx context.Context, sellerID string, in service.ProfileInput) (*model.Seller, error)
	ChangePassword(ctx context.Context, sellerID, currentPassword, newPassword string) error
	Withdrawals(ctx context.Context, sellerID string) (*service.WithdrawalSummary, error)
	RequestWithdrawal(ctx context.Context, sellerID string, amount float64) (*model.Withdrawal, error)
	Analytics(ctx context.Context, sellerID string) (*model.SellerAnalytics, error)

	CreateProduct(ctx context.Context, sellerID string, in service.ProductInput) (*model.Product, error)
	ListProducts(ctx context.Context, sellerID string, page, limit int) (*service.ProductList, error)
	GetProduct(ctx context.Context, sellerID string, productID int64) (*model.Product, error)
	UpdateProduct(ctx context.Context, sellerID string, productID int64, in service.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, sellerID string, productID int64) error
	ListOrders(ctx context.Context, sellerID, status string, page, limit int) (*service.OrderList, error)
	GetOrder(ctx context.Context, sellerID string, orderID int64) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, sellerID string, orderID int64, status string) (*model.Order, error)

	AuthenticateAdmin(email, password string) error
	ListSellers(ctx context.Context, f model.SellerFilter) (*service.SellerList, error)
	PendingApprovals(ctx context.Context, page, limit int) (*service.SellerList, error)
	GetSeller(ctx context.Context, sellerID string) (*model.Seller, error)
	ApproveSeller(ctx context.Context, sellerID string) (*model.Seller, error)
	RejectSeller(ctx context.Context, sellerID, reason string) (*model.Seller, error)
	ChangeSellerStatus(ctx context.Context, sellerID, newStatus string) (*model.Seller, error)
	SellerProducts(ctx context.Context, sellerID string, page, limit int) (*service.ProductList, error)
	SellerOrders(ctx context.Context, sellerID, status string, page, limit int) (*service.OrderList, error)
	SellerAnalytics(ctx context.Context, sellerID string) (*model.SellerAnalytics, error)
}

// DocumentStore сохраняет сканы удостоверений, загруженные при регистрации.
type DocumentStore interface {
	Upload(ctx context.Context, originalName, contentType string, r io.Reader, size int64) (string, error)
}

// Options содержит необязательные зависимости обработчика.
type Options struct {
	// OTPLimiter ограничивает повторную отправку кода, LoginLimiter — попытки входа.
	OTPLimiter   ratelimit.Limiter
	LoginLimiter ratelimit.Limiter
	Documents    DocumentStore
	// MaxUploadSize — предельный размер multipart-запроса регистрации в байтах.
	MaxUploadSize int64

	Metrics     http.Handler
	Observer    middleware.RequestObserver
	Health      func(ctx context.Context) error
	CORSOrigins []string
}

const defaultMaxUploadSize = 10 << 20

// Handler реализует HTTP-обработчики API маркетплейса продавцов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts Options) *Handler {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUploadSize
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		opts:           opts,
	}
}

// Healthz сообщает о доступности сервиса и его хранилища.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.opts.Health != nil {
		if err := h.opts.Health(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
