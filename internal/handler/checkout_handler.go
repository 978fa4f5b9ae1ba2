package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// 支払い方法
const (
	PaymentCard = "card"
	PaymentCOD  = "cod"
)

// MsgOrderPlaced は注文受付時のメッセージ。
const MsgOrderPlaced = "Order Placed Successfully!"

// IdentitySource はチェックアウトでお届け先の既定値に使うログイン中のユーザー。
type IdentitySource interface {
	Identity() (model.UserIdentity, bool)
}

// CheckoutRecorder はチェックアウトの記録先。
type CheckoutRecorder interface {
	RecordCheckout()
}

// CheckoutHandler はチェックアウトのHTTPハンドラー。
// 注文の永続化と決済は行わず、カートから取り出した注文内容をログに記録する。
type CheckoutHandler struct {
	cart     CartService
	identity IdentitySource
	metrics  CheckoutRecorder
	logger   *slog.Logger
}

// NewCheckoutHandler はCheckoutHandlerを生成する。metricsはnilでもよい。
func NewCheckoutHandler(cart CartService, identity IdentitySource, metrics CheckoutRecorder, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{
		cart:     cart,
		identity: identity,
		metrics:  metrics,
		logger:   logger,
	}
}

// checkoutRequest はチェックアウトリクエストのボディ。
// 空の項目はログイン中ユーザーのプロフィールで補完する。
type checkoutRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	ZipCode       string `json:"zip_code"`
	PaymentMethod string `json:"payment_method"`
}

// orderSummary はチェックアウト結果のレスポンス。
type orderSummary struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message"`
	OrderRef      string               `json:"order_ref"`
	Items         []model.CartLineItem `json:"items"`
	Total         float64              `json:"total"`
	ItemCount     int                  `json:"item_count"`
	Customer      checkoutRequest      `json:"customer"`
	PaymentMethod string               `json:"payment_method"`
}

// Checkout は注文を受け付ける。
// POST /api/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if u, ok := h.identity.Identity(); ok {
		req = fillFromIdentity(req, u)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentCard
	}
	if reason := validateCheckout(req); reason != "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(reason))
		return
	}

	state := h.cart.Checkout(r.Context())
	if len(state.Items) == 0 {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewEmptyCartError())
		return
	}

	summary := orderSummary{
		Success:       true,
		Message:       MsgOrderPlaced,
		OrderRef:      uuid.NewString(),
		Items:         state.Items,
		Total:         state.Total,
		ItemCount:     state.ItemCount,
		Customer:      req,
		PaymentMethod: req.PaymentMethod,
	}

	userID, _ := middleware.UserIDFromContext(r.Context())
	h.logger.Info("order placed",
		slog.String("order_ref", summary.OrderRef),
		slog.String("user_id", userID),
		slog.String("email", req.Email),
		slog.String("payment_method", req.PaymentMethod),
		slog.Int("item_count", summary.ItemCount),
		slog.Float64("total", summary.Total),
	)

	if h.metrics != nil {
		h.metrics.RecordCheckout()
	}

	writeJSON(w, http.StatusOK, summary)
}

func fillFromIdentity(req checkoutRequest, u model.UserIdentity) checkoutRequest {
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&req.Name, strings.TrimSpace(u.FirstName+" "+u.LastName))
	fill(&req.Email, u.Email)
	fill(&req.Phone, u.Phone)
	fill(&req.Address, u.Address)
	fill(&req.City, u.City)
	fill(&req.ZipCode, u.Pincode)
	return req
}

func validateCheckout(req checkoutRequest) string {
	required := []struct {
		field string
		value string
	}{
		{"name", req.Name},
		{"email", req.Email},
		{"phone", req.Phone},
		{"address", req.Address},
		{"city", req.City},
		{"zip_code", req.ZipCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Sprintf("%s is required", f.field)
		}
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "email is invalid"
	}
	switch req.PaymentMethod {
	case PaymentCard, PaymentCOD:
	default:
		return fmt.Sprintf("payment_method must be %q or %q", PaymentCard, PaymentCOD)
	}
	return ""
}
