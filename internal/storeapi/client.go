// Package storeapi はリモートのコマース/コンテンツAPI（Frappe）のクライアントを提供する。
// 認証系メソッド（ログイン・会員登録・プロフィール更新）とカタログ取得を含む。
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const (
	// methodPrefix はFrappeのホワイトリストメソッド呼び出しのパス。
	methodPrefix = "/api/method/"
	// DefaultMethodPath はストアAPIのメソッドが属するPythonモジュールパス。
	DefaultMethodPath = "test_google.google_testing.api"
	// maxResponseSize は応答ボディの最大サイズ（1MB）。
	maxResponseSize = 1 << 20
)

// StatusError はAPIが2xx以外のステータスを返したことを表す。
// 業務エラー（success=false）とは区別され、通信エラーとして扱う。
type StatusError struct {
	Method     string
	StatusCode int
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("store api %s returned status %d", e.Method, e.StatusCode)
}

// CallRecorder はAPI呼び出し結果の記録先。
type CallRecorder interface {
	RecordAPICall(method, outcome string, duration time.Duration)
}

// Client はストアAPIのクライアント。
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	baseURL      string
	methodPath   string
	recorder     CallRecorder
	newRequestID func() string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLはスキームとホスト（例: "https://shop.example.com"）、
// methodPathが空の場合はDefaultMethodPathを使う。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL, methodPath string) *Client {
	if methodPath == "" {
		methodPath = DefaultMethodPath
	}
	return &Client{
		httpClient:   httpClient,
		logger:       logger,
		baseURL:      strings.TrimRight(baseURL, "/"),
		methodPath:   methodPath,
		newRequestID: func() string { return uuid.New().String() },
	}
}

// SetRecorder はAPI呼び出しのメトリクス記録先を設定する。
func (c *Client) SetRecorder(r CallRecorder) {
	c.recorder = r
}

// NewHTTPClient はストアAPI用のHTTPクライアントを生成する。
// Frappeのセッションクッキー（sid）を保持するためpublicsuffixリスト付きのクッキージャーを使う。
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
	}, nil
}

// call はメソッドを呼び出し、応答をoutにデコードする。
// 応答は {"message": ...} または {"data": ...} で包まれていれば中身を取り出す。
func (c *Client) call(ctx context.Context, httpMethod, method string, query url.Values, body any, out any) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if c.recorder != nil {
			c.recorder.RecordAPICall(method, outcome, time.Since(start))
		}
	}()

	reqURL := c.baseURL + methodPrefix + c.methodPath + "." + method
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			outcome = "encode_error"
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, reqURL, reader)
	if err != nil {
		outcome = "request_error"
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := c.newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport_error"
		c.logger.Error("store api call failed",
			slog.String("method", method),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("store api %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = "status_error"
		c.logger.Error("store api returned error status",
			slog.String("method", method),
			slog.String("request_id", requestID),
			slog.Int("http_status", resp.StatusCode),
		)
		return &StatusError{Method: method, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		outcome = "read_error"
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(unwrap(raw), out); err != nil {
		outcome = "decode_error"
		c.logger.Error("failed to decode store api response",
			slog.String("method", method),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	c.logger.Debug("store api call completed",
		slog.String("method", method),
		slog.String("request_id", requestID),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// unwrap はFrappeの応答エンベロープを取り除く。
// "message" → "data" の順にオブジェクトまたは配列の値を探し、どちらもなければ応答全体を返す。
// 文字列のmessageは結果本体のフィールドとして扱う。
func unwrap(raw []byte) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	for _, key := range []string{"message", "data"} {
		if v, ok := envelope[key]; ok && isContainer(v) {
			return v
		}
	}
	return raw
}

// isContainer はJSON値がオブジェクトまたは配列かを判定する。
func isContainer(v json.RawMessage) bool {
	t := strings.TrimSpace(string(v))
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}
