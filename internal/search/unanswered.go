// Package search は検索オーケストレーションと未回答判定を提供する。
//
// 外部のReddit APIクライアントから候補投稿を取得し、classifyパッケージの
// ヒューリスティクスを順に適用して「未回答の質問」を抽出する。
package search

import (
	"context"
	"log/slog"

	"github.com/hitoshi/askman/internal/classify"
	"github.com/hitoshi/askman/internal/model"
)

// CommentFetcher は投稿のコメントを遅延取得するインターフェース。
// 実装は1段階の「さらに読み込む」展開を行った上でコメントを返す。
// テスト時にモックに差し替え可能。
type CommentFetcher interface {
	FetchComments(ctx context.Context, post *model.Post, limit int) ([]model.Comment, error)
}

// IsUnanswered は投稿のコメントスレッドが「実質的な回答なし」かどうかを判定する。
//
// 判定表:
//   - コメント数 0: 未回答（コメント取得不要）
//   - コメント数 > 2×maxComments: 回答済み（コメント取得不要）
//   - コメント数 <= maxComments: 最大 maxComments+2 件のコメントを取得し、
//     削除済みを除いて有意なコメントを数える。有意数が maxComments/2（整数除算）を
//     超えた時点で回答済み、そうでなければ未回答
//   - それ以外（maxComments < コメント数 <= 2×maxComments）: 回答済み
//
// コメント取得に失敗した場合は未回答側に倒す（fail-open）。
// 未回答投稿を取りこぼすより過剰報告する方を意図的に選んでいる。
// loggerがnilの場合はグローバルロガーを使用する。
func IsUnanswered(ctx context.Context, post *model.Post, maxComments int, fetcher CommentFetcher, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}

	if post.NumComments == 0 {
		return true
	}

	if post.NumComments > maxComments*2 {
		return false
	}

	if post.NumComments <= maxComments {
		comments, err := fetcher.FetchComments(ctx, post, maxComments+2)
		if err != nil {
			logger.Warn("failed to fetch comments, treating post as unanswered",
				slog.String("post_id", post.ID),
				slog.String("error", err.Error()),
			)
			return true
		}

		// フェッチャーが多めに返しても評価対象は maxComments+2 件まで
		if len(comments) > maxComments+2 {
			comments = comments[:maxComments+2]
		}

		meaningful := 0
		for _, c := range comments {
			if c.Body == "" || c.IsDeleted() {
				continue
			}
			if classify.IsMeaningfulComment(c.Body) {
				meaningful++
				if meaningful > maxComments/2 {
					return false
				}
			}
		}
		return true
	}

	return false
}
