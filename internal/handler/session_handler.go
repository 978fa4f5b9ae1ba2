package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/session"
)

// SessionService はセッションハンドラーが必要とするサービスインターフェース。
// *session.Storeが満たす。
type SessionService interface {
	// Snapshot は現在のセッション状態を返す。
	Snapshot() session.State
	// Login はメールアドレスとパスワードでログインする。
	Login(ctx context.Context, email, password string) model.Result
	// Signup は会員登録し、成功時はそのままログインする。
	Signup(ctx context.Context, data model.SignupData) model.Result
	// Logout はログイン状態を破棄する。
	Logout(ctx context.Context)
	// UpdateProfile はプロフィールを部分更新する。
	UpdateProfile(ctx context.Context, patch model.ProfilePatch) model.Result
	// RefreshProfile はAuth APIからプロフィールを再取得する。
	RefreshProfile(ctx context.Context) model.Result
}

// SessionHandler はログイン・会員登録・プロフィールのHTTPハンドラー。
type SessionHandler struct {
	service SessionService
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// resultResponse は操作結果と操作後のセッション状態をまとめたレスポンス。
// 業務上の失敗もHTTP 200で返し、messageを画面に表示させる。
type resultResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Session session.State `json:"session"`
}

func (h *SessionHandler) writeResult(w http.ResponseWriter, res model.Result) {
	writeJSON(w, http.StatusOK, resultResponse{
		Success: res.Success,
		Message: res.Message,
		Session: h.service.Snapshot(),
	})
}

// GetSession は現在のセッション状態を返す。
// GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Snapshot())
}

// Login はログインを処理する。
// POST /api/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	h.writeResult(w, h.service.Login(r.Context(), req.Email, req.Password))
}

// Signup は会員登録を処理する。
// POST /api/session/signup
func (h *SessionHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupData
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	h.writeResult(w, h.service.Signup(r.Context(), req))
}

// Logout はログアウトを処理する。
// POST /api/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context())
	h.writeResult(w, model.Succeeded("Logged out"))
}

// GetProfile はプロフィールを再取得して返す。
// 再取得に失敗した場合も手元のプロフィールを返し、結果はmessageで伝える。
// GET /api/profile
func (h *SessionHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.service.RefreshProfile(r.Context()))
}

// UpdateProfile はプロフィールの部分更新を処理する。
// PATCH /api/profile
func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch model.ProfilePatch
	if apiErr := decodeJSON(w, r, &patch); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if patch.IsEmpty() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("no profile fields to update"))
		return
	}

	h.writeResult(w, h.service.UpdateProfile(r.Context(), patch))
}
