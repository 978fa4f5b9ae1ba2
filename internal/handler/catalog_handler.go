package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/storeapi"
)

// CatalogService はカタログハンドラーが必要とするサービスインターフェース。
// *storeapi.Clientが満たす。
type CatalogService interface {
	ListCategories(ctx context.Context) ([]storeapi.Category, error)
	ListItems(ctx context.Context, category, subcategory string) ([]storeapi.Item, error)
	ListSubcategories(ctx context.Context, category string) ([]storeapi.Subcategory, error)
	GetCompanySettings(ctx context.Context) (*storeapi.CompanySettings, error)
}

// CatalogSanitizer はカタログの表示文字列を無害化する。*security.Sanitizerが満たす。
type CatalogSanitizer interface {
	SanitizeText(raw string) string
	SanitizeDescription(raw string) string
}

// CatalogHandler はカタログ取得のHTTPハンドラー。
// リモートAPIの応答を無害化し、相対パスの画像URLをストアのURLで絶対化して返す。
type CatalogHandler struct {
	service   CatalogService
	sanitizer CatalogSanitizer
	assetBase *url.URL
	logger    *slog.Logger
}

// NewCatalogHandler はCatalogHandlerを生成する。
// assetBaseURLはカタログ内の相対パス画像を解決する基準URL（通常はSTORE_API_BASE_URL）。
func NewCatalogHandler(service CatalogService, sanitizer CatalogSanitizer, assetBaseURL string, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	base, err := url.Parse(assetBaseURL)
	if err != nil || base.Host == "" {
		base = nil
	}
	return &CatalogHandler{
		service:   service,
		sanitizer: sanitizer,
		assetBase: base,
		logger:    logger,
	}
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/catalog/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.catalogFailed(w, "list_categories", err)
		return
	}
	for i := range cats {
		cats[i].Title = h.sanitizer.SanitizeText(cats[i].Title)
		cats[i].ButtonText = h.sanitizer.SanitizeText(cats[i].ButtonText)
		cats[i].Description = h.sanitizer.SanitizeDescription(cats[i].Description)
		cats[i].HeroImage = resolveAssetURL(h.assetBase, cats[i].HeroImage)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": nonNil(cats)})
}

// ListItems は商品一覧を返す。category・subcategoryクエリで絞り込める。
// GET /api/catalog/items
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.ListItems(r.Context(), q.Get("category"), q.Get("subcategory"))
	if err != nil {
		h.catalogFailed(w, "list_items", err)
		return
	}
	for i := range items {
		items[i].Title = h.sanitizer.SanitizeText(items[i].Title)
		items[i].ShortDescription = h.sanitizer.SanitizeDescription(items[i].ShortDescription)
		items[i].Image = resolveAssetURL(h.assetBase, items[i].Image)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
}

// ListSubcategories はサブカテゴリ一覧を返す。categoryクエリは必須。
// GET /api/catalog/subcategories
func (h *CatalogHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("category is required"))
		return
	}

	subs, err := h.service.ListSubcategories(r.Context(), category)
	if err != nil {
		h.catalogFailed(w, "list_subcategories", err)
		return
	}
	for i := range subs {
		subs[i].Title = h.sanitizer.SanitizeText(subs[i].Title)
		subs[i].Description = h.sanitizer.SanitizeDescription(subs[i].Description)
		subs[i].Image = resolveAssetURL(h.assetBase, subs[i].Image)
	}
	writeJSON(w, http.StatusOK, map[string]any{"subcategories": nonNil(subs)})
}

// GetSettings は会社情報を返す。
// GET /api/catalog/settings
func (h *CatalogHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetCompanySettings(r.Context())
	if err != nil {
		h.catalogFailed(w, "get_company_settings", err)
		return
	}
	if settings == nil {
		settings = &storeapi.CompanySettings{}
	}
	settings.CompanyName = h.sanitizer.SanitizeText(settings.CompanyName)
	settings.Tagline = h.sanitizer.SanitizeText(settings.Tagline)
	writeJSON(w, http.StatusOK, settings)
}

func (h *CatalogHandler) catalogFailed(w http.ResponseWriter, method string, err error) {
	h.logger.Warn("catalog request failed",
		slog.String("method", method),
		slog.String("error", err.Error()),
	)
	writeAPIErrorResponse(w, http.StatusBadGateway, model.NewCatalogFailedError())
}

// resolveAssetURL は相対パスの画像URLをbaseで絶対化する。絶対URLと空文字列はそのまま返す。
func resolveAssetURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	return base.ResolveReference(ref).String()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
