// Package main はAPIサーバーのエントリポイント。
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"library-management-service/config"
	"library-management-service/internal/envelope"
	"library-management-service/internal/handler"
	"library-management-service/internal/infra"
	"library-management-service/internal/repository"
	"library-management-service/internal/token"
	"library-management-service/internal/usecase"
)

func main() {
	ctx := context.Background()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	// 設定読み込み
	cfg := config.Load()

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// トレース情報付きロガーを設定
	infra.SetupLogger(cfg)

	// DB初期化
	db, err := infra.NewDB(cfg)
	if err != nil {
		slog.Error("failed to init database", "error", err)
		os.Exit(1)
	}
	if cfg.DBAutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			slog.Error("failed to auto-migrate database", "error", err)
			os.Exit(1)
		}
	}

	// 署名鍵の解決（KMS暗号文があれば復号する）
	var decrypter infra.Decrypter
	if cfg.JWTSecretKMSCiphertext != "" {
		kmsClient, err := infra.NewKMSClient(ctx, cfg.KMSKeyName)
		if err != nil {
			slog.Error("failed to init KMS client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := kmsClient.Close(); closeErr != nil {
				slog.Error("failed to close KMS client", "error", closeErr)
			}
		}()
		decrypter = kmsClient
	}
	signingKey, err := infra.ResolveSigningKey(ctx, cfg, decrypter)
	if err != nil {
		slog.Error("failed to resolve signing key", "error", err)
		os.Exit(1)
	}

	// ペイロード暗号はブラウザとの共有秘密なので必須
	if cfg.PayloadSecret == "" {
		slog.Error("PAYLOAD_SECRET is not set")
		os.Exit(1)
	}
	payloadCipher := envelope.New(cfg.PayloadSecret)

	var claimsCipher *envelope.Cipher
	if cfg.TokenClaimsSecret != "" {
		claimsCipher = envelope.New(cfg.TokenClaimsSecret)
	} else {
		claimsCipher, err = envelope.NewHost()
		if err != nil {
			slog.Error("failed to derive claims cipher", "error", err)
			os.Exit(1)
		}
		slog.Warn("TOKEN_CLAIMS_SECRET is not set; tokens are bound to this host")
	}

	tokens, err := token.NewService(token.Config{
		SigningKey: signingKey,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
	}, claimsCipher)
	if err != nil {
		slog.Error("failed to init token service", "error", err)
		os.Exit(1)
	}

	// DI
	userRepo := repository.NewUserRepository(db)
	bookRepo := repository.NewBookRepository(db)
	router := handler.NewRouter(handler.RouterDeps{
		Auth:           handler.NewAuthHandler(usecase.NewAuthService(userRepo, tokens)),
		Books:          handler.NewBookHandler(usecase.NewBookService(bookRepo)),
		PayloadCipher:  payloadCipher,
		Verifier:       tokens,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	// サーバー起動
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, "library-management-service"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting server", "port", cfg.Port, "version", infra.Version)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
