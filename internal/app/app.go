package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/askman/internal/config"
	"github.com/hitoshi/askman/internal/export"
	"github.com/hitoshi/askman/internal/handler"
	"github.com/hitoshi/askman/internal/logger"
	"github.com/hitoshi/askman/internal/metrics"
	"github.com/hitoshi/askman/internal/middleware"
	"github.com/hitoshi/askman/internal/reddit"
	"github.com/hitoshi/askman/internal/search"
)

// Init はアプリケーションの初期化を行う。
// .envファイル（存在する場合）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envファイルの読み込み。存在しなくてもエラーにしない。
	_ = godotenv.Load()

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	// search サブコマンドは結果CSVをwに書くため、ログはstderrへ出す
	logWriter := w
	if cmd == CommandSearch {
		logWriter = os.Stderr
	}

	cfg, err := Init(logWriter)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandSearch:
		return runSearch(w, cfg, args[1:])
	case CommandServe:
		return runServe(cfg)
	default:
		return runServe(cfg)
	}
}

// buildService はRedditクライアントと検索サービスをワイヤリングする。
// collectorがnilの場合（CLIモード）はメトリクスを記録しない。
func buildService(cfg *config.Config, collector *metrics.Collector) (*search.Service, *reddit.Client) {
	// 型付きnilをインターフェースに入れないよう明示的に変換する
	var statusRec reddit.StatusRecorder
	var metricsRec search.MetricsRecorder
	if collector != nil {
		statusRec = collector
		metricsRec = collector
	}

	client := reddit.NewClient(
		&http.Client{Timeout: cfg.FetchTimeout},
		slog.Default(),
		reddit.Credentials{
			ClientID:     cfg.RedditClientID,
			ClientSecret: cfg.RedditClientSecret,
			UserAgent:    cfg.RedditUserAgent,
		},
		cfg.RedditRateLimit,
		statusRec,
	)

	svc := search.NewService(client, client, slog.Default(), metricsRec)
	return svc, client
}

// defaultsFromConfig はConfigから検索パラメータの既定値を構築する。
func defaultsFromConfig(cfg *config.Config) handler.SearchDefaults {
	return handler.SearchDefaults{
		Limit:              cfg.SearchLimit,
		TimeFilter:         cfg.SearchTimeFilter,
		MinScore:           cfg.MinScore,
		RelevanceThreshold: cfg.RelevanceThreshold,
		MaxComments:        cfg.MaxComments,
		MinContentLength:   cfg.MinContentLength,
		PostPause:          cfg.PostPause,
	}
}

// runServe はAPIサーバーモードで起動する。
// Reddit API認証を確認し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. Redditクライアントと検索サービスのワイヤリング
	svc, client := buildService(cfg, collector)

	// 3. 起動時の認証確認。資格情報が無効な場合は起動を中止する。
	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()
	if err := client.Verify(ctx); err != nil {
		return fmt.Errorf("reddit api verification failed: %w", err)
	}

	slog.Info("reddit api connection established")

	// 4. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral

	rl := middleware.NewRateLimiter(rateLimiterCfg)
	defer rl.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		SearchService:     svc,
		SearchDefaults:    defaultsFromConfig(cfg),
		Gatherer:          registry,
	})

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // 検索1回はReddit API呼び出しを多数含むため長め
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runSearch はワンショットCLIモードで検索を実行し、結果CSVをwに書き出す。
// askman search <keyword> [subreddit]
func runSearch(w io.Writer, cfg *config.Config, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("usage: askman search <keyword> [subreddit]")
	}

	keyword := strings.TrimSpace(args[0])
	subreddit := ""
	if len(args) > 1 {
		subreddit = strings.TrimSpace(args[1])
	}

	svc, client := buildService(cfg, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 資格情報の確認。無効なら検索前に中止する。
	if err := client.Verify(ctx); err != nil {
		return err
	}

	questions, err := svc.Run(ctx, search.Params{
		Keyword:            keyword,
		Subreddit:          subreddit,
		TimeFilter:         cfg.SearchTimeFilter,
		Limit:              cfg.SearchLimit,
		MinScore:           cfg.MinScore,
		RelevanceThreshold: cfg.RelevanceThreshold,
		MaxComments:        cfg.MaxComments,
		MinContentLength:   cfg.MinContentLength,
		QuestionOnly:       true,
		FilterPromotional:  true,
		PostPause:          cfg.PostPause,
	})
	if err != nil {
		return err
	}

	slog.Info("search completed",
		slog.String("keyword", keyword),
		slog.Int("found", len(questions)),
	)

	return export.WriteCSV(w, questions)
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
