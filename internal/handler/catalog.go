package handler

import (
	"net/http"

	"github.com/mmeshcher/marketplace-sellers/internal/service"
)

type productsResponse struct {
	Products   []productResponse  `json:"products"`
	Pagination paginationResponse `json:"pagination"`
}

func productsView(list *service.ProductList) productsResponse {
	resp := productsResponse{
		Products:   make([]productResponse, 0, len(list.Products)),
		Pagination: pagination(list.Page, list.Total),
	}
	for i := range list.Products {
		resp.Products = append(resp.Products, productView(&list.Products[i]))
	}
	return resp
}

type ordersResponse struct {
	Orders     []orderResponse    `json:"orders"`
	Pagination paginationResponse `json:"pagination"`
}

func ordersView(list *service.OrderList) ordersResponse {
	resp := ordersResponse{
		Orders:     make([]orderResponse, 0, len(list.Orders)),
		Pagination: pagination(list.Page, list.Total),
	}
	for i := range list.Orders {
		resp.Orders = append(resp.Orders, orderView(&list.Orders[i]))
	}
	return resp
}

// CreateProduct добавляет товар продавцу.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	var in service.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), sellerID, in)
	if err != nil {
		h.fail(w, r, "create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, productView(p))
}

// ListProducts возвращает товары продавца.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	page, limit := pageParams(r)
	list, err := h.service.ListProducts(r.Context(), sellerID, page, limit)
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}

	writeJSON(w, http.StatusOK, productsView(list))
}

// GetProduct возвращает товар продавца.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.sellerID(w, r)
	if !ok {
		return
	}
	productID, ok := idParam(w, r, "productID")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), sellerID, productID)
	if err != nil {
		h.fail(w, r, "get product", err)
		return
	}

	writeJSON(w, http.StatusOK, productView(p))
}

// UpdateProduct частично обновляет товар продавца.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.sellerID(w, r)
	if !ok {
		return
	}
	productID, ok := idParam(w, r, "productID")
	if !ok {
		return
	}

	var in service.ProductPatch
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), sellerID, productID, in)
	if err != nil {
		h.fail(w, r, "update product", err)
		return
	}

	writeJSON(w, http.StatusOK, productView(p))
}

// DeleteProduct удаляет товар продавца.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.sellerID(w, r)
	if !ok {
		return
	}
	productID, ok := idParam(w, r, "productID")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), sellerID, productID); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// ListOrders возвращает заказы продавца.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	page, limit := pageParams(r)
	list, err := h.service.ListOrders(r.Context(), sellerID, r.URL.Query().Get("status"), page, limit)
	if err != nil {
		h.fail(w, r, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, ordersView(list))
}

// GetOrder возвращает заказ продавца.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.sellerID(w, r)
	if !ok {
		return
	}
	orderID, ok := idParam(w, r, "orderID")
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), sellerID, orderID)
	if err != nil {
		h.fail(w, r, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, orderView(o))
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus меняет статус заказа продавца.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := h.sellerID(w, r)
	if !ok {
		return
	}
	orderID, ok := idParam(w, r, "orderID")
	if !ok {
		return
	}

	var req orderStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.service.UpdateOrderStatus(r.Context(), sellerID, orderID, req.Status)
	if err != nil {
		h.fail(w, r, "update order status", err)
		return
	}

	writeJSON(w, http.StatusOK, orderView(o))
}
