// Package model содержит доменные сущности маркетплейса продавцов.
package model

import "time"

// SellerStatus описывает этап жизненного цикла продавца.
type SellerStatus string

const (
	SellerStatusPending   SellerStatus = "pending"
	SellerStatusApproved  SellerStatus = "approved"
	SellerStatusRejected  SellerStatus = "rejected"
	SellerStatusInactive  SellerStatus = "inactive"
	SellerStatusSuspended SellerStatus = "suspended"
)

// Valid сообщает, является ли статус одним из известных.
func (s SellerStatus) Valid() bool {
	switch s {
	case SellerStatusPending, SellerStatusApproved, SellerStatusRejected,
		SellerStatusInactive, SellerStatusSuspended:
		return true
	}
	return false
}

// BankDetails содержит реквизиты для выплат продавцу.
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	AccountNumber string `json:"accountNumber"`
	RoutingCode   string `json:"routingCode"`
}

// EmailOTP хранит текущий код подтверждения почты и число неудачных попыток.
type EmailOTP struct {
	Code      string
	ExpiresAt *time.Time
	Attempts  int
}

// Seller представляет продавца маркетплейса.
type Seller struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	PasswordHash     []byte
	NationalID       string
	IDDocument       string
	Bank             BankDetails
	StoreName        string
	StoreDescription string
	Address          string

	Status          SellerStatus
	IsApproved      bool
	IsEmailVerified bool
	ApprovedAt      *time.Time
	RejectionReason string
	OTP             EmailOTP

	// Суммы в копейках (центах).
	TotalEarnings int64
	TotalOrders   int64
	TotalProducts int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanOperate сообщает, допущен ли продавец к бизнес-операциям.
func (s *Seller) CanOperate() bool {
	return s.IsApproved && s.Status == SellerStatusApproved
}

// StatusChange описывает смену статуса продавца администратором.
type StatusChange struct {
	Status     SellerStatus
	ApprovedAt *time.Time
	// RejectionReason: nil — не менять, пустая строка — очистить.
	RejectionReason *string
}

// ProfileUpdate содержит изменяемые продавцом поля профиля; nil означает «не менять».
type ProfileUpdate struct {
	Name             *string
	Phone            *string
	StoreName        *string
	StoreDescription *string
	Address          *string
	Bank             *BankDetails
}

// WithdrawalStatus описывает статус заявки на вывод средств.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// Withdrawal описывает заявку продавца на вывод средств.
type Withdrawal struct {
	ID          int64
	SellerID    string
	Amount      int64
	Status      WithdrawalStatus
	Bank        BankDetails
	RequestedAt time.Time
	CompletedAt *time.Time
	Notes       string
}

// AvailableBalance вычисляет доступный к выводу остаток: начисления минус все заявки.
func AvailableBalance(totalEarnings int64, withdrawals []Withdrawal) int64 {
	balance := totalEarnings
	for _, w := range withdrawals {
		balance -= w.Amount
	}
	return balance
}

// Product описывает товар продавца.
type Product struct {
	ID          int64
	SellerID    string
	Name        string
	Description string
	Price       int64
	Stock       int
	Category    string
	Images      []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductUpdate содержит изменяемые поля товара; nil означает «не менять».
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *int64
	Stock       *int
	Category    *string
	Images      []string
	IsActive    *bool
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid сообщает, является ли статус заказа известным.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, что из статуса нельзя перейти в другой.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// OrderItem описывает позицию заказа.
type OrderItem struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// Order описывает заказ покупателя у продавца.
type Order struct {
	ID              int64
	SellerID        string
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	Items           []OrderItem
	TotalAmount     int64
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SellerAnalytics содержит сводные показатели продавца.
type SellerAnalytics struct {
	TotalEarnings      int64
	TotalOrders        int64
	TotalProducts      int64
	ActiveProducts     int64
	AvailableBalance   int64
	TotalWithdrawn     int64
	PendingWithdrawals int64
	OrdersByStatus     map[OrderStatus]int64
}

// SellerFilter задаёт параметры выборки продавцов для администратора.
type SellerFilter struct {
	Status SellerStatus
	Search string
	Page   int
	Limit  int
}

// Page описывает параметры постраничной выборки.
type Page struct {
	Page  int
	Limit int
}

// Offset возвращает смещение для SQL-запроса.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
