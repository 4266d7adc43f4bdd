// Package service реализует бизнес-логику маркетплейса продавцов.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/marketplace-sellers/internal/events"
	"github.com/mmeshcher/marketplace-sellers/internal/model"
	"github.com/mmeshcher/marketplace-sellers/internal/otp"
	"github.com/mmeshcher/marketplace-sellers/internal/validation"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateSeller(ctx context.Context, s *model.Seller) error
	SellerExists(ctx context.Context, email, nationalID string) (bool, bool, error)
	GetSellerByID(ctx context.Context, id string) (*model.Seller, error)
	GetSellerByEmail(ctx context.Context, email string) (*model.Seller, error)
	SetSellerOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	IncrementOTPAttempts(ctx context.Context, id string) (int, error)
	MarkEmailVerified(ctx context.Context, id string) error
	UpdateSellerStatus(ctx context.Context, id string, change model.StatusChange) (*model.Seller, error)
	UpdateSellerProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.Seller, error)
	UpdateSellerPassword(ctx context.Context, id string, hash []byte) error
	ListSellers(ctx context.Context, f model.SellerFilter) ([]model.Seller, int, error)
	GetSellerAnalytics(ctx context.Context, sellerID string) (*model.SellerAnalytics, error)

	GetWithdrawals(ctx context.Context, sellerID string) ([]model.Withdrawal, error)
	CreateWithdrawal(ctx context.Context, sellerID string, amount int64) (*model.Withdrawal, error)

	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, sellerID string, page model.Page) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64, sellerID string) error

	ListOrders(ctx context.Context, sellerID string, status model.OrderStatus, page model.Page) ([]model.Order, int, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error)
}

// Notifier отправляет продавцам транзакционные письма.
type Notifier interface {
	SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error
	SendApproval(ctx context.Context, to, name string) error
	SendRejection(ctx context.Context, to, name, reason string) error
}

// TransitionObserver учитывает переходы жизненного цикла продавца.
type TransitionObserver interface {
	ObserveTransition(transition string)
}

const (
	defaultQueueSize = 100
	defaultPageLimit = 10
	maxPageLimit     = 100
	minPasswordLen   = 6
)

// Options содержит необязательные параметры сервиса.
type Options struct {
	// OTPTTL — срок действия кода подтверждения, по умолчанию 10 минут.
	OTPTTL time.Duration
	// AdminEmail и AdminPasswordHash задают учётную запись администратора.
	AdminEmail        string
	AdminPasswordHash []byte
	// QueueSize — ёмкость очереди писем об одобрении и отклонении.
	QueueSize int

	Logger   *zap.Logger
	Events   events.Publisher
	Observer TransitionObserver
}

// Service содержит бизнес-логику жизненного цикла продавцов, каталога и выплат.
type Service struct {
	repo     Repository
	notifier Notifier
	events   events.Publisher
	observer TransitionObserver
	logger   *zap.Logger
	validate *validation.Validator

	otpTTL            time.Duration
	adminEmail        string
	adminPasswordHash []byte

	notifications chan notification

	now   func() time.Time
	newID func() string
}

// NewService создаёт новый сервис с указанным репозиторием и отправителем писем.
func NewService(repo Repository, notifier Notifier, opts Options) *Service {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = otp.DefaultTTL
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}

	return &Service{
		repo:              repo,
		notifier:          notifier,
		events:            opts.Events,
		observer:          opts.Observer,
		logger:            opts.Logger,
		validate:          validation.New(),
		otpTTL:            opts.OTPTTL,
		adminEmail:        normalizeEmail(opts.AdminEmail),
		adminPasswordHash: opts.AdminPasswordHash,
		notifications:     make(chan notification, opts.QueueSize),
		now:               time.Now,
		newID:             uuid.NewString,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// HashPassword возвращает bcrypt-хеш пароля.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}

func (s *Service) publish(ctx context.Context, subject string, ev events.SellerEvent) {
	ev.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, subject, ev); err != nil {
		s.logger.Warn("failed to publish seller event",
			zap.String("subject", subject),
			zap.String("seller_id", ev.SellerID),
			zap.Error(err),
		)
	}
}

func (s *Service) observe(transition string) {
	if s.observer != nil {
		s.observer.ObserveTransition(transition)
	}
}

func normalizePage(page, limit int) model.Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return model.Page{Page: page, Limit: limit}
}

func toCents(amount float64) int64 {
	if amount >= 0 {
		return int64(amount*100 + 0.5)
	}
	return int64(amount*100 - 0.5)
}
