package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/playerapi/internal/config"
	"github.com/hitoshi/playerapi/internal/database"
	"github.com/hitoshi/playerapi/internal/handler"
	"github.com/hitoshi/playerapi/internal/identity"
	"github.com/hitoshi/playerapi/internal/logger"
	"github.com/hitoshi/playerapi/internal/metrics"
	"github.com/hitoshi/playerapi/internal/middleware"
	"github.com/hitoshi/playerapi/internal/model"
	"github.com/hitoshi/playerapi/internal/repository"
	"github.com/hitoshi/playerapi/internal/token"
	"github.com/hitoshi/playerapi/internal/worker/cleanup"
)

// shutdownTimeout はグレースフルシャットダウンの待機上限。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
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
	root := NewRootCmd(w)
	root.SetArgs(args)
	return root.Execute()
}

// withConfig は初期化を行ってからfnを実行する。
func withConfig(w io.Writer, cmd Command, fn func(cfg *config.Config) error) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	return fn(cfg)
}

// tokenSettings はConfigからトークンの署名パラメータを組み立てる。
func tokenSettings(cfg *config.Config) token.Settings {
	return token.Settings{
		SigningKey: []byte(cfg.JWTSigningKey),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		TTL:        cfg.JWTTTL,
	}
}

// identitySettings はConfigからidentityサービスの設定を組み立てる。
func identitySettings(cfg *config.Config) identity.Settings {
	return identity.Settings{
		LockoutEnabled:    cfg.LockoutEnabled,
		MaxFailedAttempts: cfg.LockoutMaxFailedAttempts,
		LockoutDuration:   cfg.LockoutDuration,
		Password:          identity.DefaultPasswordPolicy(cfg.PasswordMinLength),
	}
}

// newIdentityService はPostgresのidentityストアに接続したidentity.Serviceを生成する。
func newIdentityService(db *sql.DB, cfg *config.Config) *identity.Service {
	return identity.NewService(
		repository.NewPostgresUserRepo(db),
		identity.NewBcryptHasher(0),
		identitySettings(cfg),
	)
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// newRouterDeps はConfigとDB接続からルーターの依存関係を組み立てる。
func newRouterDeps(cfg *config.Config, db *sql.DB, reg *prometheus.Registry, rl *middleware.RateLimiter) *handler.RouterDeps {
	ts := tokenSettings(cfg)

	return &handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     token.NewVerifier(ts),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,

		DeleteClaimType:  cfg.DeleteClaimType,
		DeleteClaimValue: cfg.DeleteClaimValue,

		IdentityService: newIdentityService(db, cfg),
		AccountConfig:   handler.AccountHandlerConfig{Token: ts},

		PlayerStore: repository.NewPostgresPlayerRepo(db),

		HealthChecker:   db,
		Metrics:         metrics.NewCollector(reg),
		MetricsGatherer: reg,
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクスレジストリ
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 3. レートリミッター（req/min）
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))
	defer rl.Stop()

	// 4. 期限切れロックアウトの定期解除
	// db.Closeより先に実行されるよう、DB接続の後でdeferする
	stopJob := cleanup.NewLockoutCleanupJob(db, slog.Default()).Go(context.Background(), cleanup.DefaultInterval)
	defer stopJob()

	// 5. ルーターの構築
	router := handler.NewRouter(newRouterDeps(cfg, db, reg, rl))

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.CurrentVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runGrantClaim はユーザーにクレームを付与する。
func runGrantClaim(ctx context.Context, cfg *config.Config, email, claimType, claimValue string) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	claim := model.Claim{Type: claimType, Value: claimValue}
	if err := newIdentityService(db, cfg).GrantClaim(ctx, email, claim); err != nil {
		return fmt.Errorf("failed to grant claim: %w", err)
	}

	slog.Info("claim granted",
		slog.String("email", email),
		slog.String("claim_type", claimType),
		slog.String("claim_value", claimValue),
	)
	return nil
}

// runGrantRole はユーザーをロールに追加する。
func runGrantRole(ctx context.Context, cfg *config.Config, email, role string) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := newIdentityService(db, cfg).GrantRole(ctx, email, role); err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}

	slog.Info("role granted",
		slog.String("email", email),
		slog.String("role", role),
	)
	return nil
}

// healthcheckPort はSERVER_PORT環境変数からヘルスチェック先のポートを返す。
func healthcheckPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return "8080"
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
