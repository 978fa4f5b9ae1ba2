package storeapi

import (
	"context"
	"io"
	"net/http"
	"testing"
)

func TestClient_ListCategories(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/method/test_google.google_testing.api.list_categories" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{"message":[{"name":"CAT-1","title":"Sarees","order":1},{"name":"CAT-2","title":"Kurtas","order":2}]}`)
	})

	cats, err := c.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories returned error: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("len = %d, want 2", len(cats))
	}
	if cats[0].Title != "Sarees" {
		t.Errorf("cats[0].Title = %q", cats[0].Title)
	}
}

func TestClient_ListItems_FiltersAndNilPrice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("category") != "CAT-1" {
			t.Errorf("category = %q", q.Get("category"))
		}
		if _, ok := q["subcategory"]; ok {
			t.Error("空のsubcategoryが送信されている")
		}
		io.WriteString(w, `{"message":[{"name":"I1","title":"Silk","price":1200.5},{"name":"I2","title":"Cotton"}]}`)
	})

	items, err := c.ListItems(context.Background(), "CAT-1", "")
	if err != nil {
		t.Fatalf("ListItems returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Price == nil || *items[0].Price != 1200.5 {
		t.Errorf("items[0].Price = %v", items[0].Price)
	}
	if items[1].Price != nil {
		t.Errorf("価格未設定の商品のPriceはnilであるべき: %v", *items[1].Price)
	}
}

func TestClient_ListSubcategories(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("category") != "CAT-1" {
			t.Errorf("category = %q", r.URL.Query().Get("category"))
		}
		io.WriteString(w, `{"message":[{"name":"SUB-1","title":"Banarasi"}]}`)
	})

	subs, err := c.ListSubcategories(context.Background(), "CAT-1")
	if err != nil {
		t.Fatalf("ListSubcategories returned error: %v", err)
	}
	if len(subs) != 1 || subs[0].Title != "Banarasi" {
		t.Errorf("subs = %+v", subs)
	}
}

func TestClient_GetCompanySettings_EmptyMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":{"company_name":"Acme","tagline":"Since 1990"}}`)
	})

	s, err := c.GetCompanySettings(context.Background())
	if err != nil {
		t.Fatalf("GetCompanySettings returned error: %v", err)
	}
	if s.CompanyName != "Acme" || s.Tagline != "Since 1990" {
		t.Errorf("settings = %+v", s)
	}
}
