// Package gate は保護されたページへのアクセス可否を判定する（AccessGate）。
// 判定は呼び出しのたびにセッション状態から行い、結果をキャッシュしない。
package gate

// DefaultLoginPath はリダイレクト先のログインページ。
const DefaultLoginPath = "/login"

// Kind は判定結果の種類。
type Kind int

const (
	// DecisionLoading はセッション復元中でプレースホルダーを表示する。
	DecisionLoading Kind = iota
	// DecisionRedirect は未ログインでログインページへ誘導する。
	DecisionRedirect
	// DecisionRender は保護されたコンテンツを表示する。
	DecisionRender
)

// String は判定結果の名前を返す。
func (k Kind) String() string {
	switch k {
	case DecisionLoading:
		return "loading"
	case DecisionRedirect:
		return "redirect"
	case DecisionRender:
		return "render"
	default:
		return "unknown"
	}
}

// Status は判定に必要なセッション状態。UserIDはログイン済みの場合のみ設定される。
type Status struct {
	IsAuthenticated bool
	IsLoading       bool
	UserID          string
}

// Decision はアクセス判定の結果。
// Redirectの場合のみRedirectToとFrom（元々要求されたパス）が設定される。
type Decision struct {
	Kind       Kind
	RedirectTo string
	From       string
}

// Evaluate はセッション状態と要求パスから判定を返す純粋関数。
// 復元中は認証状態に関わらずLoadingを返す。
func Evaluate(status Status, requested, loginPath string) Decision {
	if status.IsLoading {
		return Decision{Kind: DecisionLoading}
	}
	if !status.IsAuthenticated {
		if loginPath == "" {
			loginPath = DefaultLoginPath
		}
		return Decision{Kind: DecisionRedirect, RedirectTo: loginPath, From: requested}
	}
	return Decision{Kind: DecisionRender}
}

// StatusSource はセッション状態の提供元。*session.Storeが満たす。
// 判定に使う値はすべて1回の呼び出しで同じ時点のものを返す。
type StatusSource interface {
	GateStatus() Status
}

// Gate はログインページのパスを保持する判定器。
type Gate struct {
	LoginPath string
}

// New はGateを生成する。
func New(loginPath string) *Gate {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Gate{LoginPath: loginPath}
}

// Evaluate はsrcの現在の状態で判定し、判定に使った状態も返す。
func (g *Gate) Evaluate(src StatusSource, requested string) (Decision, Status) {
	st := src.GateStatus()
	return Evaluate(st, requested, g.LoginPath), st
}
