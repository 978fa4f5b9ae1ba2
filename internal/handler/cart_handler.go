package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/model"
)

// CartService はカートハンドラーが必要とするサービスインターフェース。
// *cart.Storeが満たす。
type CartService interface {
	Snapshot() cart.State
	AddItem(ctx context.Context, c cart.Candidate) cart.State
	RemoveItem(ctx context.Context, id string) cart.State
	UpdateQuantity(ctx context.Context, id string, quantity int) cart.State
	ClearCart(ctx context.Context) cart.State
	Checkout(ctx context.Context) cart.State
}

// CartHandler はカート操作のHTTPハンドラー。
type CartHandler struct {
	service CartService
}

// NewCartHandler はCartHandlerを生成する。
func NewCartHandler(service CartService) *CartHandler {
	return &CartHandler{service: service}
}

// updateQuantityRequest は数量更新リクエストのボディ。
// 0以下は削除として扱われる。
type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart はカートの状態を返す。
// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// AddItem は商品をカートに追加する。
// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req cart.Candidate
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if req.ID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("id is required"))
		return
	}

	writeJSON(w, http.StatusOK, h.service.AddItem(r.Context(), req))
}

// UpdateQuantity は行の数量を設定する。
// PUT /api/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateQuantityRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQuantityError())
		return
	}
	if req.Quantity == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidQuantityError())
		return
	}

	writeJSON(w, http.StatusOK, h.service.UpdateQuantity(r.Context(), id, *req.Quantity))
}

// RemoveItem は行を削除する。
// DELETE /api/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, h.service.RemoveItem(r.Context(), id))
}

// ClearCart はカートを空にする。
// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ClearCart(r.Context()))
}
