package storeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/storefront/internal/model"
)

// wireUser はAPIが返すユーザーレコード。Frappeではドキュメント名(name)がIDになる。
type wireUser struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	CreatedAt string `json:"created_at"`
}

func (w wireUser) toModel() model.UserIdentity {
	id := w.Name
	if id == "" {
		id = w.ID
	}
	return model.UserIdentity{
		ID:        id,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Email:     w.Email,
		Phone:     w.Phone,
		Address:   w.Address,
		City:      w.City,
		State:     w.State,
		Pincode:   w.Pincode,
		CreatedAt: w.CreatedAt,
	}
}

type wireUserResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	User    *wireUser `json:"user"`
}

// Login はメールアドレスとパスワードでログインする。
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	var resp wireUserResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "user_login", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.toLoginResponse(), nil
}

// Signup は会員登録を行う。
func (c *Client) Signup(ctx context.Context, data model.SignupData) (*model.Result, error) {
	var resp model.Result
	if err := c.call(ctx, http.MethodPost, "user_signup", nil, data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile はuserIDのプロフィールを部分更新する。
// パッチのフィールドはuser_idと同じ階層に展開して送る。
func (c *Client) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Result, error) {
	b, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile patch: %w", err)
	}
	body := map[string]any{}
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, fmt.Errorf("failed to encode profile patch: %w", err)
	}
	body["user_id"] = userID

	var resp model.Result
	if err := c.call(ctx, http.MethodPost, "update_user_profile", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetUserProfile はuserIDの最新プロフィールを取得する。
func (c *Client) GetUserProfile(ctx context.Context, userID string) (*model.LoginResponse, error) {
	var resp wireUserResponse
	q := url.Values{"user_id": {userID}}
	if err := c.call(ctx, http.MethodGet, "get_user_profile", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toLoginResponse(), nil
}

func (r wireUserResponse) toLoginResponse() *model.LoginResponse {
	out := &model.LoginResponse{Success: r.Success, Message: r.Message}
	if r.User != nil {
		u := r.User.toModel()
		out.User = &u
	}
	return out
}
