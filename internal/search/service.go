package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/askman/internal/classify"
	"github.com/hitoshi/askman/internal/model"
	"github.com/hitoshi/askman/internal/sanitize"
)

// maxSearchTerms は1回の実行で発行する検索語の最大数。
// API呼び出し過多を避けるため、候補語のうち先頭2つのみを使用する。
const maxSearchTerms = 2

// Searcher はキーワード検索を行うインターフェース。
// サブレディット名が空の場合は全サブレディットを対象とする。
// テスト時にモックに差し替え可能。
type Searcher interface {
	Search(ctx context.Context, query, subreddit, timeFilter string, limit int) ([]model.Post, error)
}

// MetricsRecorder は検索サービスが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordSearch()
	RecordSearchFailure()
	RecordPostsClassified(count int)
	RecordQuestionsFound(count int)
}

// Params は1回の検索実行のパラメータ。
type Params struct {
	Keyword            string        // 検索キーワード（必須）
	Subreddit          string        // 対象サブレディット（空なら全体）
	TimeFilter         string        // 期間フィルタ: all, day, week, month, year
	Limit              int           // 収集する質問数の上限
	MinScore           int           // 投稿スコアの下限
	RelevanceThreshold float64       // 関連度スコアの下限
	MaxComments        int           // 「未回答」とみなすコメント数の閾値
	MinContentLength   int           // 本文の最小文字数
	QuestionOnly       bool          // 質問投稿のみに絞る
	FilterPromotional  bool          // 宣伝投稿を除外する
	PostPause          time.Duration // 投稿処理間の待機時間（自主的レート制限）
}

// Service は未回答質問の検索オーケストレーター。
// 投稿を1件ずつ順次処理し、フィルタを通過した投稿のみを結果に含める。
type Service struct {
	searcher  Searcher
	fetcher   CommentFetcher
	logger    *slog.Logger
	metrics   MetricsRecorder
	sanitizer sanitize.Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(searcher Searcher, fetcher CommentFetcher, logger *slog.Logger, metrics MetricsRecorder) *Service {
	return &Service{
		searcher:  searcher,
		fetcher:   fetcher,
		logger:    logger,
		metrics:   metrics,
		sanitizer: sanitize.New(),
	}
}

// BuildSearchTerms はキーワードから検索語の候補リストを構築する。
// 実際に発行されるのは先頭のmaxSearchTerms個のみ。
func BuildSearchTerms(keyword string) []string {
	return []string{
		keyword,
		keyword + " help",
		keyword + " advice",
		keyword + " recommend",
	}
}

// Run は検索から分類までの1回の実行を行い、未回答質問のリストを返す。
//
// 複数の検索語で投稿を収集して投稿IDで重複排除した後、各投稿に
// スコアフィルタ → 本文長フィルタ → 宣伝検出 → 質問判定 → 関連度スコア →
// 未回答判定 の順でパイプラインを適用し、最初に不合格となった段階で打ち切る。
// Limit件の質問が集まった時点で早期終了する。
// 結果は関連度の降順、同点なら投稿日時の降順でソートされる。
//
// 検索語単位の失敗はWARNログを出してその語をスキップし、残りの語を試行する。
// すべての語が失敗して候補が1件も得られない場合はエラーを返す。
func (s *Service) Run(ctx context.Context, params Params) ([]model.Question, error) {
	runID := uuid.NewString()
	start := time.Now()

	if s.metrics != nil {
		s.metrics.RecordSearch()
	}

	s.logger.Info("search run started",
		slog.String("run_id", runID),
		slog.String("keyword", params.Keyword),
		slog.String("subreddit", params.Subreddit),
		slog.String("time_filter", params.TimeFilter),
		slog.Int("limit", params.Limit),
	)

	// 検索語ごとに候補を収集する。検索語単位の失敗はスキップして続行する。
	terms := BuildSearchTerms(params.Keyword)[:maxSearchTerms]

	var candidates []model.Post
	var failedTerms int
	for _, term := range terms {
		posts, err := s.searcher.Search(ctx, term, params.Subreddit, params.TimeFilter, params.Limit*3)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failedTerms++
			s.logger.Warn("search term failed, skipping",
				slog.String("run_id", runID),
				slog.String("term", term),
				slog.String("error", err.Error()),
			)
			continue
		}
		candidates = append(candidates, posts...)
	}

	if failedTerms == len(terms) {
		if s.metrics != nil {
			s.metrics.RecordSearchFailure()
		}
		return nil, model.NewSearchFailedError(fmt.Sprintf("すべての検索語（%d件）が失敗しました", failedTerms))
	}

	unique := dedupeByID(candidates)

	s.logger.Info("candidates collected",
		slog.String("run_id", runID),
		slog.Int("total", len(candidates)),
		slog.Int("unique", len(unique)),
	)

	var questions []model.Question
	processed := 0

	for i := range unique {
		post := &unique[i]

		if len(questions) >= params.Limit {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		processed++

		if q, ok := s.classifyPost(ctx, post, params); ok {
			questions = append(questions, q)
		}

		// 自主的レート制限: 投稿ごとに短い待機を入れる
		if params.PostPause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(params.PostPause):
			}
		}
	}

	// 関連度の降順、同点なら投稿日時の降順
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Relevance != questions[j].Relevance {
			return questions[i].Relevance > questions[j].Relevance
		}
		return questions[i].Created.After(questions[j].Created)
	})

	if s.metrics != nil {
		s.metrics.RecordPostsClassified(processed)
		s.metrics.RecordQuestionsFound(len(questions))
	}

	s.logger.Info("search run completed",
		slog.String("run_id", runID),
		slog.Int("processed", processed),
		slog.Int("found", len(questions)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return questions, nil
}

// classifyPost は1件の投稿に分類パイプラインを適用する。
// フィルタを通過した場合のみQuestion行とtrueを返す。
func (s *Service) classifyPost(ctx context.Context, post *model.Post, params Params) (model.Question, bool) {
	if post.Score < params.MinScore {
		return model.Question{}, false
	}

	// 本文からHTMLタグとエンティティを除去したプレーンテキストで以降の判定を行う
	post.SelfText = s.sanitizer.PlainText(post.SelfText)

	// 本文長フィルタ。タイトルが "?" で終わる投稿は本文が短くても許可する。
	if post.ContentLength() < params.MinContentLength && !endsWithQuestionMark(post.Title) {
		return model.Question{}, false
	}

	if params.FilterPromotional && classify.IsPromotional(post.Title, post.SelfText) {
		return model.Question{}, false
	}

	if params.QuestionOnly && !classify.IsGenuineQuestion(post.Title, post.SelfText) {
		return model.Question{}, false
	}

	relevance := classify.RelevanceScore(post.Title, post.SelfText, params.Keyword)
	if relevance < params.RelevanceThreshold {
		return model.Question{}, false
	}

	if !IsUnanswered(ctx, post, params.MaxComments, s.fetcher, s.logger) {
		return model.Question{}, false
	}

	q := model.NewQuestion(post, relevance)
	// UI表示用の本文HTMLは許可リストポリシーでサニタイズしてから載せる
	if post.SelfTextHTML != "" {
		q.ContentHTML = s.sanitizer.SanitizeHTML(post.SelfTextHTML)
	}
	return q, true
}

// dedupeByID は投稿IDによる重複排除を行う。初出順を保持する。
func dedupeByID(posts []model.Post) []model.Post {
	seen := make(map[string]bool, len(posts))
	unique := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		unique = append(unique, p)
	}
	return unique
}

func endsWithQuestionMark(title string) bool {
	return len(title) > 0 && title[len(title)-1] == '?'
}
