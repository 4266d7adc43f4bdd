package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/marketplace-sellers/internal/middleware"
	"github.com/mmeshcher/marketplace-sellers/internal/model"
	"github.com/mmeshcher/marketplace-sellers/internal/service"
)

// AdminLogin выдаёт токен администратора.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !h.allow(w, r, h.opts.LoginLimiter, "admin-login:"+clientIP(r)) {
		return
	}

	if err := h.service.AuthenticateAdmin(req.Email, req.Password); err != nil {
		h.fail(w, r, "admin login", err)
		return
	}

	token, err := h.authMiddleware.IssueToken("admin", middleware.RoleAdmin)
	if err != nil {
		h.fail(w, r, "admin login", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type sellersResponse struct {
	Sellers    []sellerResponse   `json:"sellers"`
	Pagination paginationResponse `json:"pagination"`
}

func sellersView(list *service.SellerList) sellersResponse {
	resp := sellersResponse{
		Sellers:    make([]sellerResponse, 0, len(list.Sellers)),
		Pagination: pagination(list.Page, list.Total),
	}
	for i := range list.Sellers {
		resp.Sellers = append(resp.Sellers, sellerSummary(&list.Sellers[i]))
	}
	return resp
}

// ListSellers возвращает продавцов с фильтрами status и search.
func (h *Handler) ListSellers(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	q := r.URL.Query()

	list, err := h.service.ListSellers(r.Context(), model.SellerFilter{
		Status: model.SellerStatus(q.Get("status")),
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.fail(w, r, "list sellers", err)
		return
	}

	writeJSON(w, http.StatusOK, sellersView(list))
}

// PendingApprovals возвращает продавцов, ожидающих решения.
func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	list, err := h.service.PendingApprovals(r.Context(), page, limit)
	if err != nil {
		h.fail(w, r, "pending approvals", err)
		return
	}

	writeJSON(w, http.StatusOK, sellersView(list))
}

// GetSeller возвращает полную карточку продавца.
func (h *Handler) GetSeller(w http.ResponseWriter, r *http.Request) {
	seller, err := h.service.GetSeller(r.Context(), chi.URLParam(r, "sellerID"))
	if err != nil {
		h.fail(w, r, "get seller", err)
		return
	}

	writeJSON(w, http.StatusOK, sellerDetail(seller))
}

type sellerActionResponse struct {
	Message string         `json:"message"`
	Seller  sellerResponse `json:"seller"`
}

// ApproveSeller одобряет продавца.
func (h *Handler) ApproveSeller(w http.ResponseWriter, r *http.Request) {
	seller, err := h.service.ApproveSeller(r.Context(), chi.URLParam(r, "sellerID"))
	if err != nil {
		h.fail(w, r, "approve seller", err)
		return
	}

	writeJSON(w, http.StatusOK, sellerActionResponse{Message: "Seller approved", Seller: sellerSummary(seller)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectSeller отклоняет продавца с указанием причины.
func (h *Handler) RejectSeller(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	seller, err := h.service.RejectSeller(r.Context(), chi.URLParam(r, "sellerID"), req.Reason)
	if err != nil {
		h.fail(w, r, "reject seller", err)
		return
	}

	writeJSON(w, http.StatusOK, sellerActionResponse{Message: "Seller rejected", Seller: sellerSummary(seller)})
}

type statusChangeRequest struct {
	NewStatus string `json:"newStatus"`
}

// ChangeSellerStatus переводит продавца в active, inactive или suspended.
func (h *Handler) ChangeSellerStatus(w http.ResponseWriter, r *http.Request) {
	var req statusChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	seller, err := h.service.ChangeSellerStatus(r.Context(), chi.URLParam(r, "sellerID"), req.NewStatus)
	if err != nil {
		h.fail(w, r, "change seller status", err)
		return
	}

	writeJSON(w, http.StatusOK, sellerActionResponse{Message: "Seller status updated", Seller: sellerSummary(seller)})
}

// SellerProducts возвращает товары продавца.
func (h *Handler) SellerProducts(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	list, err := h.service.SellerProducts(r.Context(), chi.URLParam(r, "sellerID"), page, limit)
	if err != nil {
		h.fail(w, r, "seller products", err)
		return
	}

	writeJSON(w, http.StatusOK, productsView(list))
}

// SellerOrders возвращает заказы продавца.
func (h *Handler) SellerOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)

	list, err := h.service.SellerOrders(r.Context(), chi.URLParam(r, "sellerID"), r.URL.Query().Get("status"), page, limit)
	if err != nil {
		h.fail(w, r, "seller orders", err)
		return
	}

	writeJSON(w, http.StatusOK, ordersView(list))
}

// SellerAnalytics возвращает сводные показатели продавца.
func (h *Handler) SellerAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.SellerAnalytics(r.Context(), chi.URLParam(r, "sellerID"))
	if err != nil {
		h.fail(w, r, "seller analytics", err)
		return
	}

	writeJSON(w, http.StatusOK, analyticsView(a))
}
