package storeapi

import (
	"context"
	"net/http"
	"net/url"
)

// Category は公開中の商品カテゴリ。
type Category struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	HeroImage   string `json:"hero_image,omitempty"`
	ButtonText  string `json:"button_text,omitempty"`
	Order       int    `json:"order"`
}

// Subcategory はカテゴリ配下のサブカテゴリ。
type Subcategory struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Slug        string `json:"slug,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}

// Item は商品。価格未設定の商品はPriceがnilになる。
type Item struct {
	Name             string   `json:"name"`
	Title            string   `json:"title"`
	Category         string   `json:"category,omitempty"`
	Subcategory      string   `json:"subcategory,omitempty"`
	Image            string   `json:"image,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	Order            int      `json:"order"`
}

// CompanySettings はストアの会社情報。
type CompanySettings struct {
	CompanyName    string `json:"company_name,omitempty"`
	Tagline        string `json:"tagline,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	Pincode        string `json:"pincode,omitempty"`
	Website        string `json:"website,omitempty"`
	FacebookURL    string `json:"facebook_url,omitempty"`
	TwitterURL     string `json:"twitter_url,omitempty"`
	InstagramURL   string `json:"instagram_url,omitempty"`
	YoutubeURL     string `json:"youtube_url,omitempty"`
	WhatsappNumber string `json:"whatsapp_number,omitempty"`
}

// ListCategories は公開中のカテゴリ一覧を取得する。
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.call(ctx, http.MethodGet, "list_categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListItems はカテゴリ・サブカテゴリで絞り込んだ商品一覧を取得する。
// 空文字列の条件は送らない。
func (c *Client) ListItems(ctx context.Context, category, subcategory string) ([]Item, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if subcategory != "" {
		q.Set("subcategory", subcategory)
	}
	var out []Item
	if err := c.call(ctx, http.MethodGet, "list_items", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSubcategories はカテゴリ配下のサブカテゴリ一覧を取得する。
func (c *Client) ListSubcategories(ctx context.Context, category string) ([]Subcategory, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	var out []Subcategory
	if err := c.call(ctx, http.MethodGet, "list_subcategories", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCompanySettings は有効な会社情報を取得する。未設定の場合は空の値を返す。
func (c *Client) GetCompanySettings(ctx context.Context) (*CompanySettings, error) {
	var out CompanySettings
	if err := c.call(ctx, http.MethodGet, "get_company_settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
