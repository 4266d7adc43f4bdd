package handler

import (
	"time"

	"github.com/mmeshcher/marketplace-sellers/internal/model"
)

func toAmount(cents int64) float64 {
	return float64(cents) / 100
}

type sellerResponse struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Email            string             `json:"email"`
	Phone            string             `json:"phone"`
	StoreName        string             `json:"storeName,omitempty"`
	StoreDescription string             `json:"storeDescription,omitempty"`
	Address          string             `json:"address,omitempty"`
	NationalID       string             `json:"nationalId,omitempty"`
	IDDocument       string             `json:"idDocument,omitempty"`
	Bank             *model.BankDetails `json:"bankDetails,omitempty"`
	Status           string             `json:"status"`
	IsApproved       bool               `json:"isApproved"`
	IsEmailVerified  bool               `json:"isEmailVerified"`
	ApprovedAt       *time.Time         `json:"approvedAt,omitempty"`
	RejectionReason  string             `json:"rejectionReason,omitempty"`
	TotalEarnings    float64            `json:"totalEarnings"`
	TotalOrders      int64              `json:"totalOrders"`
	TotalProducts    int64              `json:"totalProducts"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// sellerSummary не содержит реквизитов и данных удостоверения.
func sellerSummary(s *model.Seller) sellerResponse {
	return sellerResponse{
		ID:              s.ID,
		Name:            s.Name,
		Email:           s.Email,
		Phone:           s.Phone,
		StoreName:       s.StoreName,
		Status:          string(s.Status),
		IsApproved:      s.IsApproved,
		IsEmailVerified: s.IsEmailVerified,
		ApprovedAt:      s.ApprovedAt,
		RejectionReason: s.RejectionReason,
		TotalEarnings:   toAmount(s.TotalEarnings),
		TotalOrders:     s.TotalOrders,
		TotalProducts:   s.TotalProducts,
		CreatedAt:       s.CreatedAt,
	}
}

func sellerDetail(s *model.Seller) sellerResponse {
	resp := sellerSummary(s)
	bank := s.Bank
	resp.Bank = &bank
	resp.StoreDescription = s.StoreDescription
	resp.Address = s.Address
	resp.NationalID = s.NationalID
	resp.IDDocument = s.IDDocument
	return resp
}

type statusResponse struct {
	Status          string    `json:"status"`
	IsApproved      bool      `json:"isApproved"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type paginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func pagination(p model.Page, total int) paginationResponse {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return paginationResponse{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

type withdrawalResponse struct {
	ID          int64             `json:"id"`
	Amount      float64           `json:"amount"`
	Status      string            `json:"status"`
	Bank        model.BankDetails `json:"bankDetails"`
	RequestedAt time.Time         `json:"requestDate"`
	CompletedAt *time.Time        `json:"completedDate,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

func withdrawalView(w *model.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:          w.ID,
		Amount:      toAmount(w.Amount),
		Status:      string(w.Status),
		Bank:        w.Bank,
		RequestedAt: w.RequestedAt,
		CompletedAt: w.CompletedAt,
		Notes:       w.Notes,
	}
}

type productResponse struct {
	ID          int64     `json:"id"`
	SellerID    string    `json:"sellerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	Images      []string  `json:"images"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func productView(p *model.Product) productResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productResponse{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Price:       toAmount(p.Price),
		Stock:       p.Stock,
		Category:    p.Category,
		Images:      images,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type orderItemResponse struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	CustomerName    string              `json:"customerName"`
	CustomerEmail   string              `json:"customerEmail"`
	ShippingAddress string              `json:"shippingAddress"`
	Items           []orderItemResponse `json:"items"`
	TotalAmount     float64             `json:"totalAmount"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func orderView(o *model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     toAmount(it.Price),
		})
	}
	return orderResponse{
		ID:              o.ID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		ShippingAddress: o.ShippingAddress,
		Items:           items,
		TotalAmount:     toAmount(o.TotalAmount),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

type analyticsResponse struct {
	TotalEarnings      float64          `json:"totalEarnings"`
	TotalOrders        int64            `json:"totalOrders"`
	TotalProducts      int64            `json:"totalProducts"`
	ActiveProducts     int64            `json:"activeProducts"`
	AvailableBalance   float64          `json:"availableBalance"`
	TotalWithdrawn     float64          `json:"totalWithdrawn"`
	PendingWithdrawals float64          `json:"pendingWithdrawals"`
	OrdersByStatus     map[string]int64 `json:"ordersByStatus"`
}

func analyticsView(a *model.SellerAnalytics) analyticsResponse {
	byStatus := make(map[string]int64, len(a.OrdersByStatus))
	for k, v := range a.OrdersByStatus {
		byStatus[string(k)] = v
	}
	return analyticsResponse{
		TotalEarnings:      toAmount(a.TotalEarnings),
		TotalOrders:        a.TotalOrders,
		TotalProducts:      a.TotalProducts,
		ActiveProducts:     a.ActiveProducts,
		AvailableBalance:   toAmount(a.AvailableBalance),
		TotalWithdrawn:     toAmount(a.TotalWithdrawn),
		PendingWithdrawals: toAmount(a.PendingWithdrawals),
		OrdersByStatus:     byStatus,
	}
}
