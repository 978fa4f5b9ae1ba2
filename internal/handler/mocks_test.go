package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/storefront/internal/cart"
	"github.com/hitoshi/storefront/internal/gate"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/session"
	"github.com/hitoshi/storefront/internal/storeapi"
)

// --- モック定義 ---

// mockSessionService はSessionBackendのモック実装。
type mockSessionService struct {
	state session.State

	loginFn          func(ctx context.Context, email, password string) model.Result
	signupFn         func(ctx context.Context, data model.SignupData) model.Result
	logoutFn         func(ctx context.Context)
	updateProfileFn  func(ctx context.Context, patch model.ProfilePatch) model.Result
	refreshProfileFn func(ctx context.Context) model.Result
}

func (m *mockSessionService) Snapshot() session.State { return m.state }

func (m *mockSessionService) Login(ctx context.Context, email, password string) model.Result {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return model.Succeeded("Login successful")
}

func (m *mockSessionService) Signup(ctx context.Context, data model.SignupData) model.Result {
	if m.signupFn != nil {
		return m.signupFn(ctx, data)
	}
	return model.Succeeded("Registration successful")
}

func (m *mockSessionService) Logout(ctx context.Context) {
	if m.logoutFn != nil {
		m.logoutFn(ctx)
	}
}

func (m *mockSessionService) UpdateProfile(ctx context.Context, patch model.ProfilePatch) model.Result {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, patch)
	}
	return model.Succeeded("Profile updated")
}

func (m *mockSessionService) RefreshProfile(ctx context.Context) model.Result {
	if m.refreshProfileFn != nil {
		return m.refreshProfileFn(ctx)
	}
	return model.Succeeded("")
}

func (m *mockSessionService) GateStatus() gate.Status {
	st := gate.Status{IsAuthenticated: m.state.IsAuthenticated, IsLoading: m.state.IsLoading}
	if m.state.Identity != nil {
		st.UserID = m.state.Identity.ID
	}
	return st
}

func (m *mockSessionService) Identity() (model.UserIdentity, bool) {
	if m.state.Identity == nil {
		return model.UserIdentity{}, false
	}
	return *m.state.Identity, true
}

// mockCatalogService はCatalogServiceのモック実装。
type mockCatalogService struct {
	listCategoriesFn    func(ctx context.Context) ([]storeapi.Category, error)
	listItemsFn         func(ctx context.Context, category, subcategory string) ([]storeapi.Item, error)
	listSubcategoriesFn func(ctx context.Context, category string) ([]storeapi.Subcategory, error)
	getSettingsFn       func(ctx context.Context) (*storeapi.CompanySettings, error)
}

func (m *mockCatalogService) ListCategories(ctx context.Context) ([]storeapi.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogService) ListItems(ctx context.Context, category, subcategory string) ([]storeapi.Item, error) {
	if m.listItemsFn != nil {
		return m.listItemsFn(ctx, category, subcategory)
	}
	return nil, nil
}

func (m *mockCatalogService) ListSubcategories(ctx context.Context, category string) ([]storeapi.Subcategory, error) {
	if m.listSubcategoriesFn != nil {
		return m.listSubcategoriesFn(ctx, category)
	}
	return nil, nil
}

func (m *mockCatalogService) GetCompanySettings(ctx context.Context) (*storeapi.CompanySettings, error) {
	if m.getSettingsFn != nil {
		return m.getSettingsFn(ctx)
	}
	return &storeapi.CompanySettings{}, nil
}

// markSanitizer は特定のタグだけを取り除くテスト用サニタイザー。
type markSanitizer struct{}

func (markSanitizer) SanitizeText(raw string) string        { return strings.ReplaceAll(raw, "<b>", "") }
func (markSanitizer) SanitizeDescription(raw string) string { return strings.ReplaceAll(raw, "<script>", "") }

// mockRecorder はRecorderのモック実装。
type mockRecorder struct {
	mu        sync.Mutex
	statuses  []int
	checkouts int
	images    []string
}

func (m *mockRecorder) RecordHTTPStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, code)
}

func (m *mockRecorder) RecordCheckout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkouts++
}

func (m *mockRecorder) RecordImageProxy(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = append(m.images, outcome)
}

// --- テストヘルパー ---

// withUserID はリクエストコンテキストにユーザーIDを注入する。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はchiのURLパラメータをリクエストに注入する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func float64Ptr(v float64) *float64 { return &v }

func userIdentity() *model.UserIdentity {
	return &model.UserIdentity{
		ID:        "user-1",
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "asha@example.com",
		Phone:     "9876543210",
		Address:   "12 MG Road",
		City:      "Pune",
		Pincode:   "411001",
	}
}

// newCartWith は商品を追加済みの実カートを返す。
func newCartWith(candidates ...cart.Candidate) *cart.Store {
	s := cart.NewStore()
	for _, c := range candidates {
		s.AddItem(context.Background(), c)
	}
	return s
}
