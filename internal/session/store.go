// Package session はログイン中ユーザーの状態（SessionStore）を管理する。
// 起動時に永続化されたユーザーを復元し、ログイン・会員登録・ログアウト・プロフィール更新を提供する。
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/storefront/internal/gate"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/storage"
)

// ユーザー向けメッセージ
const (
	MsgCredentialsRequired = "Email and password are required"
	MsgLoginFailed         = "Login failed. Please try again."
	MsgSignupFailed        = "Registration failed. Please try again."
	MsgProfileUpdateFailed = "Profile update failed. Please try again."
	MsgProfileRefreshFail  = "Profile refresh failed. Please try again."
	MsgNoUser              = "No user logged in"
)

// minPhoneLength は電話番号の最小桁数。
const minPhoneLength = 10

// ErrAlreadyInitialized はInitializeが2回以上呼ばれた場合に返す。
var ErrAlreadyInitialized = errors.New("session store already initialized")

// AuthAPI はリモートのAuth APIの契約。
// errorは通信・プロトコル障害、Success=falseは業務エラーを表す。
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	Signup(ctx context.Context, data model.SignupData) (*model.Result, error)
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Result, error)
	GetUserProfile(ctx context.Context, userID string) (*model.LoginResponse, error)
}

// Recorder は認証操作の結果の記録先。
type Recorder interface {
	RecordAuthOutcome(op, outcome string)
	RecordStaleResponse(op string)
}

// State はセッションのスナップショット。
type State struct {
	Identity        *model.UserIdentity `json:"user"`
	IsAuthenticated bool                `json:"is_authenticated"`
	IsLoading       bool                `json:"is_loading"`
}

// Option はStoreの任意設定。
type Option func(*Store)

// WithLogger はロガーを設定する。
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(r Recorder) Option {
	return func(s *Store) { s.metrics = r }
}

// Store はセッション状態のコンテナ。
// 状態はmuで保護し、Auth APIの呼び出しはロックの外で行う。
type Store struct {
	api     AuthAPI
	adapter *storage.Adapter
	logger  *slog.Logger
	metrics Recorder

	once sync.Once

	mu          sync.Mutex
	identity    *model.UserIdentity
	initialized bool
	inFlight    int
	// generation はLogoutのたびに進む。呼び出し開始時の値と異なる結果は破棄する。
	generation uint64
	listeners  map[int]func(State)
	nextID     int
}

// NewStore はStoreを生成する。Initializeが呼ばれるまでIsLoading=trueになる。
func NewStore(api AuthAPI, adapter *storage.Adapter, opts ...Option) *Store {
	s := &Store{
		api:       api,
		adapter:   adapter,
		logger:    slog.Default(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize は永続化されたユーザーを復元する。ネットワークにはアクセスしない。
// 2回目以降の呼び出しは何もせずErrAlreadyInitializedを返す。
func (s *Store) Initialize(ctx context.Context) error {
	err := ErrAlreadyInitialized
	s.once.Do(func() {
		err = nil

		var user model.UserIdentity
		found, readErr := s.adapter.Read(ctx, storage.KeyCurrentUser, &user)
		if readErr != nil {
			// 読めない値は未ログインとして扱う
			s.logger.Warn("failed to restore session, starting logged out",
				slog.String("error", readErr.Error()),
			)
			found = false
		}
		if found && user.ID == "" {
			// null・{}・idなしの値は壊れた値として扱う
			s.logger.Warn("stored session has no user id, starting logged out")
			if rmErr := s.adapter.Remove(ctx, storage.KeyCurrentUser); rmErr != nil {
				s.logger.Warn("failed to clear corrupt session", slog.String("error", rmErr.Error()))
			}
			found = false
		}

		s.mu.Lock()
		if found {
			s.identity = &user
		}
		s.initialized = true
		s.mu.Unlock()

		if found {
			s.logger.Info("session restored", slog.String("user_id", user.ID))
		}
		s.notify()
	})
	return err
}

// Login はメールアドレスとパスワードでログインする。
func (s *Store) Login(ctx context.Context, email, password string) model.Result {
	if email == "" || password == "" {
		return model.Failed(MsgCredentialsRequired)
	}

	gen := s.begin()
	defer s.end()

	return s.login(ctx, gen, "login", email, password)
}

func (s *Store) login(ctx context.Context, gen uint64, op, email, password string) model.Result {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.logger.Error("login request failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		s.record(op, "error")
		return model.Failed(MsgLoginFailed)
	}
	if !resp.Success {
		s.logger.Info("login rejected", slog.String("email", email))
		s.record(op, "rejected")
		return model.Failed(resp.Message)
	}
	if resp.User == nil || resp.User.ID == "" {
		s.logger.Error("login response has no user", slog.String("email", email))
		s.record(op, "error")
		return model.Failed(MsgLoginFailed)
	}

	s.adopt(ctx, gen, op, "", *resp.User)
	s.record(op, "success")
	return model.Succeeded(resp.Message)
}

// Signup は会員登録を行い、成功した場合は同じ資格情報でログインする。
// 戻り値は会員登録の結果で、続くログインの結果は状態にのみ反映される。
func (s *Store) Signup(ctx context.Context, data model.SignupData) model.Result {
	if msg := validateSignup(data); msg != "" {
		return model.Failed(msg)
	}

	gen := s.begin()
	defer s.end()

	res, err := s.api.Signup(ctx, data)
	if err != nil {
		s.logger.Error("signup request failed",
			slog.String("email", data.Email),
			slog.String("error", err.Error()),
		)
		s.record("signup", "error")
		return model.Failed(MsgSignupFailed)
	}
	if !res.Success {
		s.logger.Info("signup rejected", slog.String("email", data.Email))
		s.record("signup", "rejected")
		return *res
	}
	s.record("signup", "success")

	s.login(ctx, gen, "signup_login", data.Email, data.Password)
	return *res
}

// validateSignup は必須項目を検証し、不正な場合はメッセージを返す。
func validateSignup(d model.SignupData) string {
	required := []struct {
		name  string
		value string
	}{
		{"First name", d.FirstName},
		{"Last name", d.LastName},
		{"Email", d.Email},
		{"Password", d.Password},
		{"Phone", d.Phone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return f.name + " is required"
		}
	}
	if !strings.Contains(d.Email, "@") {
		return "Email is invalid"
	}
	if len(strings.TrimSpace(d.Phone)) < minPhoneLength {
		return "Phone must be at least 10 digits"
	}
	return ""
}

// Logout はメモリと永続化領域のユーザーを削除する。冪等で、失敗しない。
// 実行中の呼び出しの結果は以後すべて破棄される。
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	userID := ""
	if s.identity != nil {
		userID = s.identity.ID
	}
	s.identity = nil
	if err := s.adapter.Remove(ctx, storage.KeyCurrentUser); err != nil {
		s.logger.Warn("failed to clear persisted session", slog.String("error", err.Error()))
	}
	s.mu.Unlock()

	if userID != "" {
		s.logger.Info("logged out", slog.String("user_id", userID))
	}
	s.notify()
}

// UpdateProfile はログイン中ユーザーのプロフィールを部分更新する。
// 未ログインの場合はAPIもストレージも呼ばずに失敗を返す。
func (s *Store) UpdateProfile(ctx context.Context, patch model.ProfilePatch) model.Result {
	current, ok := s.Identity()
	if !ok {
		return model.Failed(MsgNoUser)
	}

	gen := s.begin()
	defer s.end()

	res, err := s.api.UpdateProfile(ctx, current.ID, patch)
	if err != nil {
		s.logger.Error("profile update request failed",
			slog.String("user_id", current.ID),
			slog.String("error", err.Error()),
		)
		s.record("update_profile", "error")
		return model.Failed(MsgProfileUpdateFailed)
	}
	if !res.Success {
		s.record("update_profile", "rejected")
		return *res
	}

	s.mu.Lock()
	base := current
	if s.identity != nil {
		base = *s.identity
	}
	s.mu.Unlock()

	s.adopt(ctx, gen, "update_profile", current.ID, patch.Apply(base))
	s.record("update_profile", "success")
	return *res
}

// RefreshProfile はサーバーから最新のプロフィールを取得して置き換える。
func (s *Store) RefreshProfile(ctx context.Context) model.Result {
	current, ok := s.Identity()
	if !ok {
		return model.Failed(MsgNoUser)
	}

	gen := s.begin()
	defer s.end()

	resp, err := s.api.GetUserProfile(ctx, current.ID)
	if err != nil {
		s.logger.Error("profile refresh request failed",
			slog.String("user_id", current.ID),
			slog.String("error", err.Error()),
		)
		s.record("refresh_profile", "error")
		return model.Failed(MsgProfileRefreshFail)
	}
	if !resp.Success || resp.User == nil {
		s.record("refresh_profile", "rejected")
		msg := resp.Message
		if msg == "" {
			msg = MsgProfileRefreshFail
		}
		return model.Failed(msg)
	}

	fresh := *resp.User
	fresh.ID = current.ID
	s.adopt(ctx, gen, "refresh_profile", current.ID, fresh)
	s.record("refresh_profile", "success")
	return model.Succeeded(resp.Message)
}

// Snapshot は現在の状態のコピーを返す。
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := State{
		IsLoading: !s.initialized || s.inFlight > 0,
	}
	if s.identity != nil {
		u := *s.identity
		st.Identity = &u
		st.IsAuthenticated = true
	}
	return st
}

// GateStatus はアクセス判定に使う状態を1回のロックで読み出す。
func (s *Store) GateStatus() gate.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := gate.Status{IsLoading: !s.initialized || s.inFlight > 0}
	if s.identity != nil {
		st.IsAuthenticated = true
		st.UserID = s.identity.ID
	}
	return st
}

// Identity はログイン中ユーザーのコピーを返す。未ログインの場合はfalseを返す。
func (s *Store) Identity() (model.UserIdentity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return model.UserIdentity{}, false
	}
	return *s.identity, true
}

// IsAuthenticated はログイン中かを返す。
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// IsLoading は復元前またはAPI呼び出し中かを返す。
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.initialized || s.inFlight > 0
}

// Subscribe は状態変更の通知先を登録し、解除関数を返す。
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close は通知先をすべて解除する。以後の操作も安全に呼び出せる。
func (s *Store) Close() {
	s.mu.Lock()
	s.listeners = make(map[int]func(State))
	s.mu.Unlock()
}

// begin は呼び出し開始を記録し、開始時の世代を返す。
func (s *Store) begin() uint64 {
	s.mu.Lock()
	s.inFlight++
	gen := s.generation
	s.mu.Unlock()
	s.notify()
	return gen
}

func (s *Store) end() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	s.notify()
}

// adopt はuserを現在のidentityとして採用し永続化する。
// 世代が進んでいる場合、またはexpectIDが空でなく現在のIDと異なる場合は破棄してfalseを返す。
// 永続化は状態更新と同じロック内で行い、Logoutとの順序を保つ。
func (s *Store) adopt(ctx context.Context, gen uint64, op, expectID string, user model.UserIdentity) bool {
	s.mu.Lock()
	if gen != s.generation || (expectID != "" && (s.identity == nil || s.identity.ID != expectID)) {
		s.mu.Unlock()
		s.logger.Warn("discarding superseded response", slog.String("op", op))
		if s.metrics != nil {
			s.metrics.RecordStaleResponse(op)
		}
		return false
	}
	s.identity = &user
	if err := s.adapter.Write(ctx, storage.KeyCurrentUser, user); err != nil {
		s.logger.Warn("failed to persist session", slog.String("error", err.Error()))
	}
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Store) record(op, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordAuthOutcome(op, outcome)
	}
}

// notify は現在の状態を通知先に渡す。ロックの外で呼ぶ。
func (s *Store) notify() {
	s.mu.Lock()
	st := s.snapshotLocked()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
