// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はアクセス許可されたユーザーIDを格納するキー。
	userIDContextKey = contextKey("user_id")
	// requestIDContextKey はリクエストIDを格納するキー。
	requestIDContextKey = contextKey("request_id")
	// holderContextKey はロギングミドルウェアがユーザーIDを受け取る入れ物のキー。
	holderContextKey = contextKey("user_id_holder")
)

// userIDHolder は下流で決まったユーザーIDを上流のロギングミドルウェアへ渡す。
type userIDHolder struct {
	userID string
}

func contextWithHolder(ctx context.Context, h *userIDHolder) context.Context {
	return context.WithValue(ctx, holderContextKey, h)
}

// NewRequestIDMiddleware はリクエストIDをコンテキストとレスポンスヘッダーに設定するミドルウェアを返す。
// クライアントがX-Request-IDを送った場合はそれを引き継ぐ。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > 64 {
				id = uuid.New().String()
			}
			w.Header().Set(requestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はリクエストIDを返す。未設定の場合は空文字列。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// アクセスゲートを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// ロギングミドルウェアの内側で呼ばれた場合はアクセスログにも反映される。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if h, ok := ctx.Value(holderContextKey).(*userIDHolder); ok {
		h.userID = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}
