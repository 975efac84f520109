// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザー入力の自由テキスト（レビューコメント、
// ダイブ記録の説明文など）をサニタイズし、格納データ経由のXSSから
// クライアントを保護する。bluemondayの厳格ポリシーを使用し、
// マークアップは一切通過させない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// 自由テキストフィールドの保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力からHTMLマークアップを全て除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（許可タグなし）を使用するため、scriptタグはもちろん
// 装飾タグも含めて全てのマークアップが除去される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTMLマークアップを除去したプレーンテキストを返す。
// bluemondayはエンティティ参照へエスケープするため、除去後に
// エスケープを戻して元のプレーンテキスト表現を維持する。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
