package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mmeshcher/marketplace-sellers/internal/model"
	"github.com/mmeshcher/marketplace-sellers/internal/repository"
)

// ProductInput содержит данные нового товара.
type ProductInput struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Price       float64  `json:"price" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Category    string   `json:"category" validate:"max=100"`
	Images      []string `json:"images" validate:"max=10,dive,url"`
	IsActive    *bool    `json:"isActive"`
}

// ProductPatch содержит изменяемые поля товара; отсутствующие поля не меняются.
type ProductPatch struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Images      []string `json:"images" validate:"omitempty,max=10,dive,url"`
	IsActive    *bool    `json:"isActive"`
}

// ProductList — страница товаров.
type ProductList struct {
	Products []model.Product
	Total    int
	Page     model.Page
}

// OrderList — страница заказов.
type OrderList struct {
	Orders []model.Order
	Total  int
	Page   model.Page
}

// CreateProduct добавляет товар продавцу.
func (s *Service) CreateProduct(ctx context.Context, sellerID string, in ProductInput) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return nil, err
	}

	p := &model.Product{
		SellerID:    sellerID,
		Name:        in.Name,
		Description: in.Description,
		Price:       toCents(in.Price),
		Stock:       in.Stock,
		Category:    in.Category,
		Images:      in.Images,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts возвращает страницу товаров продавца.
func (s *Service) ListProducts(ctx context.Context, sellerID string, page, limit int) (*ProductList, error) {
	pg := normalizePage(page, limit)
	products, total, err := s.repo.ListProducts(ctx, sellerID, pg)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return &ProductList{Products: products, Total: total, Page: pg}, nil
}

// GetProduct возвращает товар, принадлежащий продавцу.
func (s *Service) GetProduct(ctx context.Context, sellerID string, productID int64) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return p, nil
}

// UpdateProduct частично обновляет товар продавца.
func (s *Service) UpdateProduct(ctx context.Context, sellerID string, productID int64, in ProductPatch) (*model.Product, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if _, err := s.GetProduct(ctx, sellerID, productID); err != nil {
		return nil, err
	}

	upd := model.ProductUpdate{
		Name:        in.Name,
		Description: in.Description,
		Stock:       in.Stock,
		Category:    in.Category,
		Images:      in.Images,
		IsActive:    in.IsActive,
	}
	if in.Price != nil {
		cents := toCents(*in.Price)
		upd.Price = &cents
	}

	return s.repo.UpdateProduct(ctx, productID, upd)
}

// DeleteProduct удаляет товар продавца.
func (s *Service) DeleteProduct(ctx context.Context, sellerID string, productID int64) error {
	if _, err := s.GetProduct(ctx, sellerID, productID); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, productID, sellerID)
}

// ListOrders возвращает страницу заказов продавца с необязательным фильтром статуса.
func (s *Service) ListOrders(ctx context.Context, sellerID, status string, page, limit int) (*OrderList, error) {
	st := model.OrderStatus(strings.TrimSpace(status))
	if st != "" && !st.Valid() {
		return nil, ErrInvalidStatus
	}

	pg := normalizePage(page, limit)
	orders, total, err := s.repo.ListOrders(ctx, sellerID, st, pg)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return &OrderList{Orders: orders, Total: total, Page: pg}, nil
}

// GetOrder возвращает заказ, принадлежащий продавцу.
func (s *Service) GetOrder(ctx context.Context, sellerID string, orderID int64) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return o, nil
}

// UpdateOrderStatus меняет статус заказа продавца. Доставленный или отменённый заказ не меняется.
func (s *Service) UpdateOrderStatus(ctx context.Context, sellerID string, orderID int64, status string) (*model.Order, error) {
	st := model.OrderStatus(strings.TrimSpace(status))
	if !st.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.GetOrder(ctx, sellerID, orderID)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		return nil, ErrInvalidOrderTransition
	}

	o, err := s.repo.UpdateOrderStatus(ctx, orderID, st)
	if err != nil {
		if errors.Is(err, repository.ErrOrderFinalized) {
			return nil, ErrInvalidOrderTransition
		}
		return nil, err
	}
	return o, nil
}

// Analytics возвращает сводные показатели продавца.
func (s *Service) Analytics(ctx context.Context, sellerID string) (*model.SellerAnalytics, error) {
	return s.repo.GetSellerAnalytics(ctx, sellerID)
}
