package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/askman/internal/export"
	"github.com/hitoshi/askman/internal/model"
	"github.com/hitoshi/askman/internal/reddit"
	"github.com/hitoshi/askman/internal/search"
)

// SearchServiceInterface は検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	// Run は検索から分類までの1回の実行を行い、未回答質問のリストを返す。
	Run(ctx context.Context, params search.Params) ([]model.Question, error)
}

// SearchDefaults はクエリパラメータ省略時に使用される既定値。
type SearchDefaults struct {
	Limit              int
	TimeFilter         string
	MinScore           int
	RelevanceThreshold float64
	MaxComments        int
	MinContentLength   int
	PostPause          time.Duration
}

// SearchHandler は未回答質問検索のHTTPハンドラー。
type SearchHandler struct {
	service  SearchServiceInterface
	defaults SearchDefaults
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(service SearchServiceInterface, defaults SearchDefaults) *SearchHandler {
	return &SearchHandler{
		service:  service,
		defaults: defaults,
	}
}

// searchResponse は検索結果のAPIレスポンス。
type searchResponse struct {
	Questions []model.Question `json:"questions"`
	Stats     searchStats      `json:"stats"`
}

// searchStats は検索実行の集計情報。
type searchStats struct {
	Count      int    `json:"count"`
	Keyword    string `json:"keyword"`
	Subreddit  string `json:"subreddit,omitempty"`
	TimeFilter string `json:"time_filter"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Search は未回答質問の検索を処理する。
// GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	params, apiErr := h.parseParams(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	start := time.Now()
	questions, err := h.service.Run(r.Context(), params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 空の結果でも questions: [] を返す
	if questions == nil {
		questions = []model.Question{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(searchResponse{
		Questions: questions,
		Stats: searchStats{
			Count:      len(questions),
			Keyword:    params.Keyword,
			Subreddit:  params.Subreddit,
			TimeFilter: params.TimeFilter,
			ElapsedMs:  time.Since(start).Milliseconds(),
		},
	})
}

// SearchCSV は検索結果をCSVファイルとして返す。
// GET /api/search.csv
func (h *SearchHandler) SearchCSV(w http.ResponseWriter, r *http.Request) {
	params, apiErr := h.parseParams(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	questions, err := h.service.Run(r.Context(), params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("reddit_questions_%s.csv", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := export.WriteCSV(w, questions); err != nil {
		slog.Error("csv export failed", slog.String("error", err.Error()))
	}
}

// parseParams はクエリパラメータを検証してsearch.Paramsに変換する。
func (h *SearchHandler) parseParams(r *http.Request) (search.Params, *model.APIError) {
	q := r.URL.Query()

	keyword := strings.TrimSpace(q.Get("keyword"))
	if keyword == "" {
		return search.Params{}, model.NewKeywordRequiredError()
	}

	timeFilter := q.Get("time")
	if timeFilter == "" {
		timeFilter = h.defaults.TimeFilter
	}
	if !reddit.ValidTimeFilter(timeFilter) {
		return search.Params{}, model.NewInvalidTimeFilterError(timeFilter)
	}

	params := search.Params{
		Keyword:            keyword,
		Subreddit:          strings.TrimSpace(q.Get("subreddit")),
		TimeFilter:         timeFilter,
		Limit:              h.defaults.Limit,
		MinScore:           h.defaults.MinScore,
		RelevanceThreshold: h.defaults.RelevanceThreshold,
		MaxComments:        h.defaults.MaxComments,
		MinContentLength:   h.defaults.MinContentLength,
		QuestionOnly:       true,
		FilterPromotional:  true,
		PostPause:          h.defaults.PostPause,
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 100 {
			return search.Params{}, model.NewInvalidParameterError("limit", "1〜100の整数を指定してください")
		}
		params.Limit = limit
	}

	if v := q.Get("min_score"); v != "" {
		minScore, err := strconv.Atoi(v)
		if err != nil {
			return search.Params{}, model.NewInvalidParameterError("min_score", "整数を指定してください")
		}
		params.MinScore = minScore
	}

	if v := q.Get("relevance_threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			return search.Params{}, model.NewInvalidParameterError("relevance_threshold", "0〜1の数値を指定してください")
		}
		params.RelevanceThreshold = threshold
	}

	if v := q.Get("max_comments"); v != "" {
		maxComments, err := strconv.Atoi(v)
		if err != nil || maxComments < 0 {
			return search.Params{}, model.NewInvalidParameterError("max_comments", "0以上の整数を指定してください")
		}
		params.MaxComments = maxComments
	}

	if v := q.Get("min_content_length"); v != "" {
		minLen, err := strconv.Atoi(v)
		if err != nil || minLen < 0 {
			return search.Params{}, model.NewInvalidParameterError("min_content_length", "0以上の整数を指定してください")
		}
		params.MinContentLength = minLen
	}

	if v := q.Get("question_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return search.Params{}, model.NewInvalidParameterError("question_only", "true または false を指定してください")
		}
		params.QuestionOnly = b
	}

	if v := q.Get("filter_promotional"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return search.Params{}, model.NewInvalidParameterError("filter_promotional", "true または false を指定してください")
		}
		params.FilterPromotional = b
	}

	return params, nil
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeAPIErrorResponse(w, http.StatusGatewayTimeout, &model.APIError{
			Code:     "TIMEOUT",
			Message:  "処理がタイムアウトしました。",
			Category: "system",
			Action:   "条件を絞って再度お試しください。",
		})
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeCredentialsInvalid:
		return http.StatusUnauthorized
	case model.ErrCodeKeywordRequired, model.ErrCodeInvalidTimeFilter, model.ErrCodeInvalidParameter:
		return http.StatusBadRequest
	case model.ErrCodeRedditUnreachable, model.ErrCodeSearchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
