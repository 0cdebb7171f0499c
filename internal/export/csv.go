// Package export は検索結果のCSV出力を提供する。
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hitoshi/askman/internal/model"
)

// csvHeader はCSVの列順。スプレッドシート取り込み用に固定されている。
var csvHeader = []string{
	"Title", "Subreddit", "Author", "Score", "Comments",
	"Created", "URL", "Content", "Relevance", "Content_Length",
}

// createdLayout はCreated列の日時フォーマット。
const createdLayout = "2006-01-02 15:04"

// WriteCSV は質問一覧をCSV形式で書き出す。
// 結果が空でもヘッダー行は必ず出力される。
func WriteCSV(w io.Writer, questions []model.Question) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("CSVヘッダーの書き込みに失敗しました: %w", err)
	}

	for _, q := range questions {
		record := []string{
			q.Title,
			q.Subreddit,
			q.Author,
			fmt.Sprintf("%d", q.Score),
			fmt.Sprintf("%d", q.Comments),
			q.Created.UTC().Format(createdLayout),
			q.URL,
			q.Content,
			fmt.Sprintf("%.2f", q.Relevance),
			fmt.Sprintf("%d", q.ContentLength),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("CSV行の書き込みに失敗しました: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
