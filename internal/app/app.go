// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/backoffice/internal/config"
	"github.com/hitoshi/backoffice/internal/handler"
	"github.com/hitoshi/backoffice/internal/identity"
	"github.com/hitoshi/backoffice/internal/logger"
	"github.com/hitoshi/backoffice/internal/metrics"
	"github.com/hitoshi/backoffice/internal/middleware"
	"github.com/hitoshi/backoffice/internal/model"
	"github.com/hitoshi/backoffice/internal/worker/listen"
	"github.com/hitoshi/backoffice/internal/worker/reindex"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってログレベルとファイル出力を反映する
	slog.SetDefault(logger.New(w, logger.Options{
		Level:      logger.ParseLevel(cfg.LogLevel),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}))

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

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("project_id", cfg.FirebaseProjectID),
		slog.String("document_store", cfg.DocumentStore),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandReindex:
		return runReindex(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe は関数ホストモードで起動する。
// 全依存関係をワイヤリングし、呼び出し可能関数とイベント受信のHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	rt, err := newBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer rt.Close()

	slog.Info("functions registered", slog.Int("count", len(rt.registry.Functions())))

	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteConfig(cfg.RateLimitCallable))
	defer rateLimiter.Stop()

	var pushVerifier middleware.PushVerifier
	if cfg.EventsAudience != "" {
		pushVerifier = identity.NewPushTokenVerifier(cfg.EventsAudience, cfg.EventsServiceAccount)
	} else {
		slog.Warn("EVENTS_AUDIENCE is not set; /events rejects every push")
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     rt.provider,
		PushVerifier:      pushVerifier,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Functions:         rt.registry,
		Events:            rt.registry,
		HealthChecker:     rt.stores.health,
		Metrics:           metrics.Handler(rt.gatherer),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("function host starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down function host...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("function host stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// products・catsコレクションの変更を購読し、登録済み関数へ配信する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.DocumentStore != config.DocumentStoreFirestore {
		return fmt.Errorf("worker requires the %s document store, got %s",
			config.DocumentStoreFirestore, cfg.DocumentStore)
	}

	rt, err := newBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer rt.Close()

	listener := listen.NewListener(
		listen.FirestoreOpener(rt.firebase.Firestore),
		rt.registry,
		slog.Default(),
		model.CollectionProducts, model.CollectionCats,
	)
	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("listener stopped: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runReindex は全商品を検索インデックスへ再同期する。
func runReindex(ctx context.Context, cfg *config.Config) error {
	rt, err := newBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer rt.Close()

	job := reindex.NewJob(rt.stores.lister, rt.indexer, slog.Default())
	res, err := job.Run(ctx)
	if err != nil {
		return fmt.Errorf("reindex finished with %d failures: %w", res.Failed, err)
	}
	return nil
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
