package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/askman/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func testCreds() Credentials {
	return Credentials{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		UserAgent:    "askman test agent/1.0",
	}
}

// newTestServer はトークンエンドポイントとAPIエンドポイントを兼ねる
// テスト用HTTPサーバーを構築する。apiHandlerはトークン取得後のAPI呼び出しを処理する。
func newTestServer(t *testing.T, apiHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("トークンリクエストのHTTPメソッド = %s, want POST", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-client" || pass != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-abc",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", apiHandler)
	return httptest.NewServer(mux)
}

func newTestClient(server *httptest.Server, buf *bytes.Buffer) *Client {
	c := NewClient(server.Client(), newTestLogger(buf), testCreds(), 6000, nil)
	c.tokenURL = server.URL + "/api/v1/access_token"
	c.baseURL = server.URL
	return c
}

func searchListingJSON() string {
	return `{
		"data": {
			"children": [
				{"kind": "t3", "data": {
					"id": "abc1",
					"title": "Best SEO course?",
					"selftext": "looking for recommendations",
					"selftext_html": "<p>looking for recommendations</p>",
					"score": 3,
					"num_comments": 2,
					"subreddit": "SEO",
					"author": "learner",
					"created_utc": 1751371200,
					"permalink": "/r/SEO/comments/abc1"
				}},
				{"kind": "t3", "data": {
					"id": "abc2",
					"title": "deleted author post",
					"selftext": "",
					"score": 1,
					"num_comments": 0,
					"subreddit": "SEO",
					"author": "",
					"created_utc": 1751371300,
					"permalink": "/r/SEO/comments/abc2"
				}}
			]
		}
	}`
}

func TestClient_Search_MapsPosts(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		if r.Header.Get("Authorization") != "Bearer token-abc" {
			t.Errorf("Authorizationヘッダー = %q, want %q", r.Header.Get("Authorization"), "Bearer token-abc")
		}
		if r.Header.Get("User-Agent") != "askman test agent/1.0" {
			t.Errorf("User-Agentヘッダー = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchListingJSON())
	})
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server, &buf)

	posts, err := c.Search(context.Background(), "seo course", "SEO", "week", 25)
	if err != nil {
		t.Fatalf("Search がエラーを返した: %v", err)
	}

	if gotPath != "/r/SEO/search" {
		t.Errorf("リクエストパス = %s, want /r/SEO/search", gotPath)
	}
	if got := gotQuery["q"]; len(got) != 1 || got[0] != "seo course" {
		t.Errorf("qパラメータ = %v, want [seo course]", got)
	}
	if got := gotQuery["t"]; len(got) != 1 || got[0] != "week" {
		t.Errorf("tパラメータ = %v, want [week]", got)
	}
	if got := gotQuery["restrict_sr"]; len(got) != 1 || got[0] != "1" {
		t.Errorf("restrict_srパラメータ = %v, want [1]", got)
	}

	if len(posts) != 2 {
		t.Fatalf("投稿数 = %d, want 2", len(posts))
	}
	p := posts[0]
	if p.ID != "abc1" || p.Title != "Best SEO course?" || p.Score != 3 || p.NumComments != 2 {
		t.Errorf("投稿のマッピングが不正: %+v", p)
	}
	if p.SelfTextHTML != "<p>looking for recommendations</p>" {
		t.Errorf("SelfTextHTML = %q, want selftext_html がそのままマッピングされること", p.SelfTextHTML)
	}
	if p.CreatedUTC != time.Unix(1751371200, 0).UTC() {
		t.Errorf("投稿日時 = %v", p.CreatedUTC)
	}
	if posts[1].Author != "[deleted]" {
		t.Errorf("空のauthorは [deleted] に変換されるべき: got %q", posts[1].Author)
	}
}

func TestClient_Search_AllSubredditsWhenEmpty(t *testing.T) {
	var gotPath string
	var gotRestrict string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRestrict = r.URL.Query().Get("restrict_sr")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": {"children": []}}`)
	})
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server, &buf)

	_, err := c.Search(context.Background(), "seo", "", "all", 25)
	if err != nil {
		t.Fatalf("Search がエラーを返した: %v", err)
	}
	if gotPath != "/r/all/search" {
		t.Errorf("リクエストパス = %s, want /r/all/search", gotPath)
	}
	if gotRestrict != "0" {
		t.Errorf("restrict_sr = %s, want 0", gotRestrict)
	}
}

func TestClient_Search_InvalidTimeFilter(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(http.DefaultClient, newTestLogger(&buf), testCreds(), 60, nil)

	_, err := c.Search(context.Background(), "seo", "", "decade", 25)
	if err == nil {
		t.Fatal("無効な期間フィルタでエラーが返されるべき")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidTimeFilter {
		t.Errorf("INVALID_TIME_FILTER エラーであるべき: got %v", err)
	}
}

func TestClient_Search_TokenReused(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-abc",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": {"children": []}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server, &buf)

	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), "seo", "", "all", 25); err != nil {
			t.Fatalf("Search がエラーを返した: %v", err)
		}
	}

	if tokenCalls != 1 {
		t.Errorf("トークン取得回数 = %d, want 1 (キャッシュが効くべき)", tokenCalls)
	}
}

func TestClient_Verify_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), testCreds(), 60, nil)
	c.tokenURL = server.URL

	err := c.Verify(context.Background())
	if err == nil {
		t.Fatal("認証失敗時にエラーが返されるべき")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCredentialsInvalid {
		t.Errorf("CREDENTIALS_INVALID エラーであるべき: got %v", err)
	}
}

func TestClient_Verify_ErrorBodyWith200(t *testing.T) {
	// Redditは認証失敗でも200で {"error": "..."} を返す場合がある
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error": "invalid_grant"}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), testCreds(), 60, nil)
	c.tokenURL = server.URL

	err := c.Verify(context.Background())
	if err == nil {
		t.Fatal("エラーボディ付き200レスポンスでエラーが返されるべき")
	}
}

func TestClient_FetchComments_ParsesAndExpands(t *testing.T) {
	moreCalled := false
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/comments/"):
			fmt.Fprint(w, `[
				{"data": {"children": [{"kind": "t3", "data": {"id": "abc1"}}]}},
				{"data": {"children": [
					{"kind": "t1", "data": {"body": "thanks"}},
					{"kind": "t1", "data": {"body": "I recommend the Moz course, it worked for me and covers the basics"}},
					{"kind": "more", "data": {"children": ["c3", "c4"]}}
				]}}
			]`)
		case r.URL.Path == "/api/morechildren":
			moreCalled = true
			if got := r.URL.Query().Get("link_id"); got != "t3_abc1" {
				t.Errorf("link_id = %s, want t3_abc1", got)
			}
			if got := r.URL.Query().Get("children"); got != "c3,c4" {
				t.Errorf("children = %s, want c3,c4", got)
			}
			fmt.Fprint(w, `{"json": {"data": {"things": [
				{"kind": "t1", "data": {"body": "expanded comment body here, quite long and detailed actually"}}
			]}}}`)
		default:
			t.Errorf("予期しないリクエストパス: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server, &buf)

	post := &model.Post{ID: "abc1", NumComments: 3}
	comments, err := c.FetchComments(context.Background(), post, 7)
	if err != nil {
		t.Fatalf("FetchComments がエラーを返した: %v", err)
	}

	if !moreCalled {
		t.Error("moreスタブは1段階展開されるべき")
	}
	if len(comments) != 3 {
		t.Fatalf("コメント数 = %d, want 3", len(comments))
	}
	if comments[0].Body != "thanks" {
		t.Errorf("コメント[0] = %q", comments[0].Body)
	}
	if comments[2].Body != "expanded comment body here, quite long and detailed actually" {
		t.Errorf("展開されたコメントが末尾に追加されるべき: %q", comments[2].Body)
	}
}

func TestClient_FetchComments_TruncatesToLimit(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"data": {"children": []}},
			{"data": {"children": [
				{"kind": "t1", "data": {"body": "one"}},
				{"kind": "t1", "data": {"body": "two"}},
				{"kind": "t1", "data": {"body": "three"}},
				{"kind": "t1", "data": {"body": "four"}}
			]}}
		]`)
	})
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server, &buf)

	comments, err := c.FetchComments(context.Background(), &model.Post{ID: "p1"}, 2)
	if err != nil {
		t.Fatalf("FetchComments がエラーを返した: %v", err)
	}
	if len(comments) != 2 {
		t.Errorf("コメント数 = %d, want 2 (limitで切り詰め)", len(comments))
	}
}

func TestClient_FetchComments_MalformedResponse(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"data": {"children": []}}]`)
	})
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server, &buf)

	_, err := c.FetchComments(context.Background(), &model.Post{ID: "p1"}, 5)
	if err == nil {
		t.Fatal("Listingが2要素未満の場合はエラーが返されるべき")
	}
}

func TestClient_Search_HTTPError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server, &buf)

	_, err := c.Search(context.Background(), "seo", "", "all", 25)
	if err == nil {
		t.Fatal("HTTPエラー時にエラーが返されるべき")
	}
}

func TestClient_Search_ContextCancelled(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
		fmt.Fprint(w, `{"data": {"children": []}}`)
	})
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(server, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // 即座にキャンセル

	_, err := c.Search(ctx, "seo", "", "all", 25)
	if err == nil {
		t.Fatal("キャンセルされたコンテキストでエラーが返されるべき")
	}
}
