// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Post はRedditの投稿を表す入力レコード。
// 検索APIから取得した値を保持する。本文は分類前にプレーンテキスト化される。
type Post struct {
	ID           string    // Reddit投稿ID（例: "abc123"）
	Title        string    // タイトル
	SelfText     string    // 本文（空の場合あり）
	SelfTextHTML string    // Markdown変換済みの本文HTML（サニタイズ前）
	Score        int       // スコア（アップボート数）
	NumComments  int       // コメント数
	Subreddit    string    // サブレディット表示名
	Author       string    // 投稿者（削除済みの場合は "[deleted]"）
	CreatedUTC   time.Time // 投稿日時（UTC）
	Permalink    string    // 相対パーマリンク（例: "/r/SEO/comments/..."）
}

// URL は投稿の完全なURLを返す。
func (p *Post) URL() string {
	return "https://reddit.com" + p.Permalink
}

// ContentLength は本文の文字数を返す。
// バイト数ではなく文字（rune）数で数えるため、マルチバイト本文でも
// 見た目の長さと一致する。
func (p *Post) ContentLength() int {
	return utf8.RuneCountInString(p.SelfText)
}

// Comment はRedditのコメント1件を表す。
type Comment struct {
	Body string // コメント本文
}

// IsDeleted はコメントが削除・除去済みかどうかを返す。
// Redditは削除されたコメントの本文を "[deleted]" または "[removed]" に置き換える。
func (c *Comment) IsDeleted() bool {
	lower := strings.ToLower(c.Body)
	return strings.HasPrefix(lower, "[deleted]") || strings.HasPrefix(lower, "[removed]")
}

// maxContentChars はエクスポート時の本文の最大文字数。超過分は省略記号で切り詰める。
const maxContentChars = 400

// Question は分類を通過した「未回答の質問」1件のエクスポート行。
// 分類ごとに新しく導出され、永続化されない。
type Question struct {
	Title         string    `json:"title"`
	Subreddit     string    `json:"subreddit"`
	Author        string    `json:"author"`
	Score         int       `json:"score"`
	Comments      int       `json:"comments"`
	Created       time.Time `json:"created"`
	URL           string    `json:"url"`
	Content       string    `json:"content"`
	ContentHTML   string    `json:"content_html,omitempty"` // サニタイズ済みの本文HTML（JSONのみ、CSVには含めない）
	Relevance     float64   `json:"relevance"`
	ContentLength int       `json:"content_length"`
}

// NewQuestion はPostと関連度スコアからQuestion行を導出する。
// 本文は400文字を超える場合に切り詰めて省略記号を付与する。
// 切り詰めはrune境界で行い、マルチバイト文字を壊さない。
func NewQuestion(post *Post, relevance float64) Question {
	content := post.SelfText
	if runes := []rune(content); len(runes) > maxContentChars {
		content = string(runes[:maxContentChars]) + "..."
	}

	return Question{
		Title:         post.Title,
		Subreddit:     post.Subreddit,
		Author:        post.Author,
		Score:         post.Score,
		Comments:      post.NumComments,
		Created:       post.CreatedUTC,
		URL:           post.URL(),
		Content:       content,
		Relevance:     relevance,
		ContentLength: post.ContentLength(),
	}
}
