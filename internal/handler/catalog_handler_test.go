package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/storeapi"
)

func TestCatalogHandler_ListItems_SanitizesAndResolvesImages(t *testing.T) {
	var gotCategory, gotSub string
	svc := &mockCatalogService{
		listItemsFn: func(ctx context.Context, category, subcategory string) ([]storeapi.Item, error) {
			gotCategory, gotSub = category, subcategory
			return []storeapi.Item{
				{
					Name:             "SHIRT-1",
					Title:            "<b>Shirt",
					Image:            "/files/shirt.jpg",
					ShortDescription: "<script>Cotton",
					Price:            float64Ptr(250),
				},
				{Name: "CAP-1", Title: "Cap", Image: "https://cdn.example.com/cap.png"},
			}, nil
		},
	}
	h := NewCatalogHandler(svc, markSanitizer{}, "https://store.example.com", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/items?category=school&subcategory=shirts", nil)
	w := httptest.NewRecorder()
	h.ListItems(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotCategory != "school" || gotSub != "shirts" {
		t.Errorf("ListItems called with (%q, %q)", gotCategory, gotSub)
	}

	var body struct {
		Items []storeapi.Item `json:"items"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(body.Items))
	}
	first := body.Items[0]
	if first.Title != "Shirt" || first.ShortDescription != "Cotton" {
		t.Errorf("not sanitized: %+v", first)
	}
	if first.Image != "https://store.example.com/files/shirt.jpg" {
		t.Errorf("Image = %q", first.Image)
	}
	if body.Items[1].Image != "https://cdn.example.com/cap.png" {
		t.Errorf("absolute image changed: %q", body.Items[1].Image)
	}
}

func TestCatalogHandler_ListCategories_EmptyIsArray(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{}, markSanitizer{}, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/categories", nil)
	w := httptest.NewRecorder()
	h.ListCategories(w, req)

	if got := w.Body.String(); got != "{\"categories\":[]}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestCatalogHandler_UpstreamFailure(t *testing.T) {
	svc := &mockCatalogService{
		listCategoriesFn: func(ctx context.Context) ([]storeapi.Category, error) {
			return nil, &storeapi.StatusError{Method: "list_categories", StatusCode: http.StatusInternalServerError}
		},
		getSettingsFn: func(ctx context.Context) (*storeapi.CompanySettings, error) {
			return nil, errors.New("connection refused")
		},
	}
	h := NewCatalogHandler(svc, markSanitizer{}, "", nil)

	for _, tc := range []struct {
		name string
		fn   http.HandlerFunc
	}{
		{"categories", h.ListCategories},
		{"settings", h.GetSettings},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.fn(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if w.Code != http.StatusBadGateway {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadGateway)
			}
			var body map[string]string
			json.NewDecoder(w.Body).Decode(&body)
			if body["code"] != model.ErrCodeCatalogFailed {
				t.Errorf("code = %q", body["code"])
			}
		})
	}
}

func TestCatalogHandler_ListSubcategories_RequiresCategory(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{}, markSanitizer{}, "", nil)

	w := httptest.NewRecorder()
	h.ListSubcategories(w, httptest.NewRequest(http.MethodGet, "/api/catalog/subcategories", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestResolveAssetURL(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{}, markSanitizer{}, "https://store.example.com/base/", nil)

	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"/files/a.jpg", "https://store.example.com/files/a.jpg"},
		{"files/a.jpg", "https://store.example.com/base/files/a.jpg"},
		{"http://other.example.com/x.png", "http://other.example.com/x.png"},
	}
	for _, tt := range tests {
		if got := resolveAssetURL(h.assetBase, tt.raw); got != tt.want {
			t.Errorf("resolveAssetURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
