// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, cart, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeSessionLoading   = "SESSION_LOADING"
	ErrCodeEmptyCart        = "EMPTY_CART"
	ErrCodeInvalidQuantity  = "INVALID_QUANTITY"
	ErrCodeCatalogFailed    = "CATALOG_UNAVAILABLE"
	ErrCodeInvalidImageURL  = "INVALID_IMAGE_URL"
	ErrCodeImageFetchFailed = "IMAGE_FETCH_FAILED"
)

// NewInvalidRequestError はリクエストボディ不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the request body and try again.",
	}
}

// NewNotAuthenticatedError は未ログインエラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "You need to log in to view this page.",
		Category: "auth",
		Action:   "Log in and you will be returned to the requested page.",
	}
}

// NewSessionLoadingError はセッション復元中エラーを生成する。
func NewSessionLoadingError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionLoading,
		Message:  "Please wait while we check your authentication.",
		Category: "auth",
		Action:   "Retry shortly.",
	}
}

// NewEmptyCartError は空カートでのチェックアウトエラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "Your cart is empty",
		Category: "cart",
		Action:   "Add items to your cart before checking out.",
	}
}

// NewInvalidQuantityError は数量指定の不正エラーを生成する。
func NewInvalidQuantityError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  "Quantity must be an integer.",
		Category: "validation",
		Action:   "Send a whole number; zero or less removes the item.",
	}
}

// NewCatalogFailedError はカタログ取得失敗エラーを生成する。
func NewCatalogFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeCatalogFailed,
		Message:  "The catalog could not be loaded.",
		Category: "catalog",
		Action:   "Wait a moment and try again.",
	}
}

// NewInvalidImageURLError は画像URLが許可されない場合のエラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("Invalid image URL: %s", reason),
		Category: "validation",
		Action:   "Use a public http(s) image URL from the catalog.",
	}
}

// NewImageFetchFailedError は画像取得失敗エラーを生成する。
func NewImageFetchFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeImageFetchFailed,
		Message:  "The image could not be fetched.",
		Category: "catalog",
		Action:   "Wait a moment and try again.",
	}
}
