// Package model はドメインモデルを定義する。
package model

// UserIdentity はログイン中ユーザーのプロフィールを表す。
// IDはプロフィール更新時の対象キーとして使う安定したハンドル。
type UserIdentity struct {
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

// SignupData は会員登録時にAuth APIへ送る入力値を表す。
type SignupData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
}

// ProfilePatch はプロフィールの部分更新を表す。
// nilのフィールドは更新対象外として既存値を保持する。
type ProfilePatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	Pincode   *string `json:"pincode,omitempty"`
}

// IsEmpty はパッチに更新対象のフィールドが1つもない場合にtrueを返す。
func (p ProfilePatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil &&
		p.Address == nil && p.City == nil && p.State == nil && p.Pincode == nil
}

// Apply はパッチをidentityに浅くマージした新しい値を返す。
// 元のidentityは変更しない。
func (p ProfilePatch) Apply(u UserIdentity) UserIdentity {
	merged := u
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&merged.FirstName, p.FirstName)
	set(&merged.LastName, p.LastName)
	set(&merged.Email, p.Email)
	set(&merged.Phone, p.Phone)
	set(&merged.Address, p.Address)
	set(&merged.City, p.City)
	set(&merged.State, p.State)
	set(&merged.Pincode, p.Pincode)
	return merged
}

// Result は認証系操作の結果を表す。
// 業務エラー・通信エラー・前提条件違反はいずれもSuccess=falseで返し、panicやerrorにはしない。
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Succeeded は成功結果を生成する。
func Succeeded(message string) Result {
	return Result{Success: true, Message: message}
}

// Failed は失敗結果を生成する。
func Failed(message string) Result {
	return Result{Success: false, Message: message}
}

// LoginResponse はAuth APIのログイン応答を表す。
// Success=trueの場合のみUserが設定される。
type LoginResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	User    *UserIdentity `json:"user,omitempty"`
}
