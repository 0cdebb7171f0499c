// Package sanitize はReddit由来コンテンツのサニタイズを提供する。
//
// Redditの投稿本文（selftext_html）はMarkdown変換後のHTMLとして届く。
// 結果ページに表示する前にbluemondayの許可リストベースのポリシーで
// 安全なタグのみを通過させ、XSSリスクを除去する。
package sanitize

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer はReddit投稿コンテンツのサニタイズ機能のインターフェースを定義する。
type Sanitizer interface {
	// SanitizeHTML は投稿本文のHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em）のみを
	// 通過させ、script・iframe・styleタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeHTML(rawHTML string) string

	// PlainText はHTMLタグをすべて除去したプレーンテキストを返す。
	// 分類処理とCSV出力はタグを含まないテキストを前提とするため、
	// selftext_htmlしか得られない場合の前処理に使用する。
	PlainText(rawHTML string) string
}

// postSanitizer はSanitizerの実装。
// 表示用と分類用の2つのbluemondayポリシーを保持し、スレッドセーフに動作する。
type postSanitizer struct {
	display *bluemonday.Policy
	strict  *bluemonday.Policy
}

// New はSanitizerの新しいインスタンスを生成する。
// 表示用ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - aタグ: httpsリンクのみ許可、target="_blank" と rel="noopener noreferrer" を自動付与
func New() *postSanitizer {
	p := bluemonday.NewPolicy()

	// Reddit Markdownが生成するタグのみ許可する。
	// 許可リストに含めないタグ（script, iframe, style等）と
	// on*イベント属性はbluemondayが自動的に除去する。
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &postSanitizer{
		display: p,
		strict:  bluemonday.StrictPolicy(),
	}
}

// SanitizeHTML は投稿本文のHTMLをサニタイズして安全なHTMLを返す。
func (s *postSanitizer) SanitizeHTML(rawHTML string) string {
	return s.display.Sanitize(rawHTML)
}

// PlainText はHTMLタグをすべて除去したプレーンテキストを返す。
// タグ除去後のHTMLエンティティ（&amp; 等）は元の文字に戻す。
func (s *postSanitizer) PlainText(rawHTML string) string {
	stripped := s.strict.Sanitize(rawHTML)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
