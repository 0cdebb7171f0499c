// Package reddit はReddit APIのクライアントを提供する。
//
// アプリ専用OAuth2（client_credentialsグラント）で認証し、
// キーワード検索とコメント取得の2つの操作を公開する。
// すべてのAPI呼び出しはトークンバケットでペーシングされる。
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/askman/internal/model"
	"golang.org/x/time/rate"
)

const (
	// defaultTokenURL はOAuth2トークン取得エンドポイント。
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	// defaultAPIBaseURL は認証済みAPIのベースURL。
	defaultAPIBaseURL = "https://oauth.reddit.com"
	// tokenExpirySlack はトークン更新を早める余裕時間。
	tokenExpirySlack = 1 * time.Minute
	// maxSearchLimit は検索APIの1回あたりの最大取得件数。
	maxSearchLimit = 100
)

// validTimeFilters は検索APIが受け付ける期間フィルタの集合。
var validTimeFilters = map[string]bool{
	"all": true, "day": true, "week": true, "month": true, "year": true,
}

// ValidTimeFilter は期間フィルタが有効かどうかを返す。
func ValidTimeFilter(filter string) bool {
	return validTimeFilters[filter]
}

// Credentials はReddit API認証に必要な3つの資格情報。
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// StatusRecorder はAPI呼び出しの結果を記録するメトリクスのインターフェース。
type StatusRecorder interface {
	RecordRedditStatus(statusCode int)
	RecordRedditLatency(duration time.Duration)
}

// Client はReddit APIのクライアント。
// アクセストークンをキャッシュし、期限切れ前に自動更新する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	creds      Credentials
	limiter    *rate.Limiter
	metrics    StatusRecorder

	tokenURL string // テスト用にエンドポイントを差し替え可能
	baseURL  string // テスト用にエンドポイントを差し替え可能

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient はClientの新しいインスタンスを生成する。
// requestsPerMinuteはReddit APIへの呼び出しレート上限。
// metricsはnilでもよい。
func NewClient(httpClient *http.Client, logger *slog.Logger, creds Credentials, requestsPerMinute int, metrics StatusRecorder) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		creds:      creds,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		metrics:    metrics,
		tokenURL:   defaultTokenURL,
		baseURL:    defaultAPIBaseURL,
	}
}

// Verify は資格情報でトークンを取得できることを確認する。
// 起動時の接続テストに使用する。
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.ensureToken(ctx)
	return err
}

// Search は指定サブレディット内（空なら全体）でキーワード検索を行う。
// 新着順でlimit件まで取得し、投稿のメタデータを返す。
func (c *Client) Search(ctx context.Context, query, subreddit, timeFilter string, limit int) ([]model.Post, error) {
	if !ValidTimeFilter(timeFilter) {
		return nil, model.NewInvalidTimeFilterError(timeFilter)
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	sub := subreddit
	restrict := "1"
	if sub == "" {
		sub = "all"
		restrict = "0"
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", "new")
	q.Set("t", timeFilter)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("restrict_sr", restrict)
	q.Set("raw_json", "1")

	endpoint := fmt.Sprintf("%s/r/%s/search?%s", c.baseURL, url.PathEscape(sub), q.Encode())

	var body listing
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	posts := make([]model.Post, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		posts = append(posts, toPost(child.Data))
	}
	return posts, nil
}

// FetchComments は投稿のトップレベルコメントをlimit件まで取得する。
// 「さらに読み込む」スタブが含まれる場合は最初の1件のみ展開する。
func (c *Client) FetchComments(ctx context.Context, post *model.Post, limit int) ([]model.Comment, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("depth", "1")
	q.Set("raw_json", "1")

	endpoint := fmt.Sprintf("%s/comments/%s?%s", c.baseURL, url.PathEscape(post.ID), q.Encode())

	// レスポンスは [投稿Listing, コメントListing] の2要素配列
	var listings []listing
	if err := c.getJSON(ctx, endpoint, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, fmt.Errorf("コメントレスポンスの形式が不正です: Listing数 %d", len(listings))
	}

	var comments []model.Comment
	var moreIDs []string
	for _, child := range listings[1].Data.Children {
		switch child.Kind {
		case "t1":
			comments = append(comments, model.Comment{Body: child.Data.Body})
		case "more":
			// 1段階のみ展開するため最初のスタブだけ記録する
			if moreIDs == nil && len(child.Data.Children) > 0 {
				moreIDs = child.Data.Children
			}
		}
	}

	if moreIDs != nil && len(comments) < limit {
		expanded, err := c.moreChildren(ctx, post.ID, moreIDs)
		if err != nil {
			// 展開失敗は取得済みコメントで続行する
			c.logger.Warn("failed to expand more comments",
				slog.String("post_id", post.ID),
				slog.String("error", err.Error()),
			)
		} else {
			comments = append(comments, expanded...)
		}
	}

	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

// moreChildren は「さらに読み込む」スタブのコメントIDを展開する。
func (c *Client) moreChildren(ctx context.Context, postID string, childIDs []string) ([]model.Comment, error) {
	q := url.Values{}
	q.Set("api_type", "json")
	q.Set("link_id", "t3_"+postID)
	q.Set("children", strings.Join(childIDs, ","))
	q.Set("raw_json", "1")

	endpoint := fmt.Sprintf("%s/api/morechildren?%s", c.baseURL, q.Encode())

	var body moreChildrenResponse
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	var comments []model.Comment
	for _, t := range body.JSON.Data.Things {
		if t.Kind == "t1" {
			comments = append(comments, model.Comment{Body: t.Data.Body})
		}
	}
	return comments, nil
}

// getJSON は認証・ペーシング付きでGETリクエストを実行し、レスポンスJSONをデコードする。
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", c.creds.UserAgent)
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordRedditLatency(time.Since(start))
	}
	if err != nil {
		c.logger.Error("reddit api request failed",
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordRedditStatus(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// トークン失効の可能性があるためキャッシュを破棄する
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return model.NewCredentialsInvalidError()
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("reddit api returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("Reddit APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// ensureToken は有効なアクセストークンを返す。
// キャッシュ済みトークンが期限内ならそれを返し、そうでなければ再取得する。
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySlack)) {
		return c.token, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("トークンリクエストの作成に失敗しました: %w", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("token request failed",
			slog.String("error", err.Error()),
		)
		return "", model.NewRedditUnreachableError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", model.NewCredentialsInvalidError()
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("トークンエンドポイントがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("トークンレスポンスの読み取りに失敗しました: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("トークンレスポンスのパースに失敗しました: %w", err)
	}
	if tr.Error != "" || tr.AccessToken == "" {
		// Redditは認証失敗でも200で {"error": "..."} を返す場合がある
		return "", model.NewCredentialsInvalidError()
	}

	c.token = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)

	c.logger.Info("reddit access token acquired",
		slog.Int("expires_in", tr.ExpiresIn),
	)
	return c.token, nil
}

// toPost はAPIレスポンスの投稿データをドメインモデルに変換する。
func toPost(d thingData) model.Post {
	author := d.Author
	if author == "" {
		author = "[deleted]"
	}
	return model.Post{
		ID:           d.ID,
		Title:        d.Title,
		SelfText:     d.SelfText,
		SelfTextHTML: d.SelfTextHTML,
		Score:        d.Score,
		NumComments:  d.NumComments,
		Subreddit:    d.Subreddit,
		Author:       author,
		CreatedUTC:   time.Unix(int64(d.CreatedUTC), 0).UTC(),
		Permalink:    d.Permalink,
	}
}
