// Package security はカタログ由来の文字列の無害化と、商品画像取得時のSSRF防止を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はリモートAPIから受け取ったカタログ文字列を無害化する。
// カートの行アイテムのタイトル等は表示用のプレーンテキストに、
// 商品説明は限られたタグのみ残したHTMLにする。
type Sanitizer struct {
	text        *bluemonday.Policy
	description *bluemonday.Policy
}

// NewSanitizer はSanitizerを生成する。
// 説明文で許可するタグ: p, br, ul, ol, li, strong, em, b, i
// リンクと画像は許可しない（画像は/api/images経由で表示する）。
func NewSanitizer() *Sanitizer {
	desc := bluemonday.NewPolicy()
	desc.AllowElements("p", "br", "ul", "ol", "li", "strong", "em", "b", "i")

	return &Sanitizer{
		text:        bluemonday.StrictPolicy(),
		description: desc,
	}
}

// SanitizeText は全てのタグを除去したプレーンテキストを返す。
// StrictPolicyがエスケープした文字実体参照は元に戻し、前後の空白を除く。
func (s *Sanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.text.Sanitize(raw)))
}

// SanitizeDescription は商品説明のHTMLを許可タグのみに絞る。
func (s *Sanitizer) SanitizeDescription(raw string) string {
	return s.description.Sanitize(raw)
}
