package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/storefront/internal/gate"
	"github.com/hitoshi/storefront/internal/model"
)

// GateSource はアクセスゲートが参照するセッション。*session.Storeが満たす。
type GateSource interface {
	gate.StatusSource
}

// NewAccessGateMiddleware は保護されたルートの前に置くミドルウェアを返す。
// 判定はリクエストごとにセッションの現在の状態から行う。
//   - 復元中: 503とプレースホルダー（Retry-After: 1）
//   - 未ログイン: ページは303でログインページへ（from=元のパス）、/api/は401とredirect_to
//   - ログイン済み: 判定と同じ時点のユーザーIDをコンテキストに入れて次へ
func NewAccessGateMiddleware(g *gate.Gate, src GateSource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, st := g.Evaluate(src, r.URL.RequestURI())

			switch d.Kind {
			case gate.DecisionLoading:
				w.Header().Set("Retry-After", "1")
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			case gate.DecisionRedirect:
				target := LoginRedirectURL(d)
				if isAPIRequest(r) {
					writeError(w, http.StatusUnauthorized, model.NewNotAuthenticatedError(), target)
					return
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), st.UserID)))
			}
		})
	}
}

// LoginRedirectURL はログインページのURLに元のパスをfromパラメータとして付ける。
func LoginRedirectURL(d gate.Decision) string {
	if d.From == "" {
		return d.RedirectTo
	}
	sep := "?"
	if strings.Contains(d.RedirectTo, "?") {
		sep = "&"
	}
	return d.RedirectTo + sep + "from=" + url.QueryEscape(d.From)
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
