package service

import (
	"context"
	"strings"

	"github.com/mmeshcher/marketplace-sellers/internal/events"
	"github.com/mmeshcher/marketplace-sellers/internal/model"
)

// AuthenticateAdmin проверяет учётные данные администратора из конфигурации.
func (s *Service) AuthenticateAdmin(email, password string) error {
	if s.adminEmail == "" || len(s.adminPasswordHash) == 0 {
		return ErrInvalidCredentials
	}
	if normalizeEmail(email) != s.adminEmail || !checkPassword(s.adminPasswordHash, password) {
		return ErrInvalidCredentials
	}
	return nil
}

// SellerList — страница продавцов с общим количеством подходящих записей.
type SellerList struct {
	Sellers []model.Seller
	Total   int
	Page    model.Page
}

// ListSellers возвращает продавцов по фильтру статуса и строке поиска по имени, почте и телефону.
func (s *Service) ListSellers(ctx context.Context, f model.SellerFilter) (*SellerList, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	page := normalizePage(f.Page, f.Limit)
	f.Page, f.Limit = page.Page, page.Limit
	f.Search = strings.TrimSpace(f.Search)

	sellers, total, err := s.repo.ListSellers(ctx, f)
	if err != nil {
		return nil, err
	}
	if sellers == nil {
		sellers = []model.Seller{}
	}
	return &SellerList{Sellers: sellers, Total: total, Page: page}, nil
}

// PendingApprovals возвращает продавцов, ожидающих решения администратора.
func (s *Service) PendingApprovals(ctx context.Context, page, limit int) (*SellerList, error) {
	return s.ListSellers(ctx, model.SellerFilter{
		Status: model.SellerStatusPending,
		Page:   page,
		Limit:  limit,
	})
}

// GetSeller возвращает продавца по идентификатору.
func (s *Service) GetSeller(ctx context.Context, sellerID string) (*model.Seller, error) {
	return s.repo.GetSellerByID(ctx, sellerID)
}

// ApproveSeller одобряет продавца и ставит в очередь письмо об одобрении.
// Повторное одобрение отклонённого продавца разрешено.
func (s *Service) ApproveSeller(ctx context.Context, sellerID string) (*model.Seller, error) {
	now := s.now().UTC()
	cleared := ""

	seller, err := s.repo.UpdateSellerStatus(ctx, sellerID, model.StatusChange{
		Status:          model.SellerStatusApproved,
		ApprovedAt:      &now,
		RejectionReason: &cleared,
	})
	if err != nil {
		return nil, err
	}

	s.observe("approved")
	s.enqueue(notification{kind: notifyApproval, to: seller.Email, name: seller.Name})
	s.publish(ctx, events.SubjectSellerApproved, events.SellerEvent{
		SellerID: seller.ID,
		Email:    seller.Email,
		Status:   string(seller.Status),
	})
	return seller, nil
}

// RejectSeller отклоняет продавца с обязательной причиной и ставит в очередь письмо об отказе.
func (s *Service) RejectSeller(ctx context.Context, sellerID, reason string) (*model.Seller, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	seller, err := s.repo.UpdateSellerStatus(ctx, sellerID, model.StatusChange{
		Status:          model.SellerStatusRejected,
		RejectionReason: &reason,
	})
	if err != nil {
		return nil, err
	}

	s.observe("rejected")
	s.enqueue(notification{kind: notifyRejection, to: seller.Email, name: seller.Name, reason: reason})
	s.publish(ctx, events.SubjectSellerRejected, events.SellerEvent{
		SellerID: seller.ID,
		Email:    seller.Email,
		Status:   string(seller.Status),
		Reason:   reason,
	})
	return seller, nil
}

// ChangeSellerStatus переводит продавца в active, inactive или suspended.
// active означает одобренного продавца; причина отклонения не меняется.
func (s *Service) ChangeSellerStatus(ctx context.Context, sellerID, newStatus string) (*model.Seller, error) {
	var status model.SellerStatus
	switch strings.TrimSpace(newStatus) {
	case "active":
		status = model.SellerStatusApproved
	case "inactive":
		status = model.SellerStatusInactive
	case "suspended":
		status = model.SellerStatusSuspended
	default:
		return nil, ErrInvalidStatus
	}

	seller, err := s.repo.UpdateSellerStatus(ctx, sellerID, model.StatusChange{Status: status})
	if err != nil {
		return nil, err
	}

	s.observe(string(status))
	s.publish(ctx, events.SubjectSellerStatusChanged, events.SellerEvent{
		SellerID: seller.ID,
		Email:    seller.Email,
		Status:   string(seller.Status),
	})
	return seller, nil
}

// SellerProducts возвращает товары продавца для администратора.
func (s *Service) SellerProducts(ctx context.Context, sellerID string, page, limit int) (*ProductList, error) {
	if _, err := s.repo.GetSellerByID(ctx, sellerID); err != nil {
		return nil, err
	}
	return s.ListProducts(ctx, sellerID, page, limit)
}

// SellerOrders возвращает заказы продавца для администратора.
func (s *Service) SellerOrders(ctx context.Context, sellerID, status string, page, limit int) (*OrderList, error) {
	if _, err := s.repo.GetSellerByID(ctx, sellerID); err != nil {
		return nil, err
	}
	return s.ListOrders(ctx, sellerID, status, page, limit)
}

// SellerAnalytics возвращает сводные показатели продавца.
func (s *Service) SellerAnalytics(ctx context.Context, sellerID string) (*model.SellerAnalytics, error) {
	return s.repo.GetSellerAnalytics(ctx, sellerID)
}
