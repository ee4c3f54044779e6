package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicegate/internal/ai"
	"voicegate/internal/audit"
	"voicegate/internal/auth"
	"voicegate/internal/calls"
	"voicegate/internal/config"
	"voicegate/internal/httpapi"
	"voicegate/internal/orchestrator"
	"voicegate/internal/reporting"
	"voicegate/internal/routing"
	"voicegate/internal/session"
	"voicegate/internal/telephony"
	"voicegate/internal/tenants"
	"voicegate/pkg/logger"
	"voicegate/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	tenantRepo := tenants.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)
	auditor := audit.NewService(audit.NewPostgresRepo(db))

	resolver := routing.NewDIDResolver(tenantRepo)
	adapter := telephony.NewAsteriskAdapter(resolver, callRepo, auditor, log)
	dialer := telephony.NewARIClient(cfg.Gateway.ARIBaseURL, cfg.Gateway.ARIUsername, cfg.Gateway.ARIPassword, cfg.Gateway.SoundsDir)

	provider := ai.NewOpenAIProvider(cfg.AI.OpenAIAPIKey, cfg.AI.STTModel, cfg.AI.LLMModel, cfg.AI.TTSModel, cfg.AI.TTSVoice)
	sessions := session.NewRedisStore(rdb, cfg.Conversation.SessionTTL)
	limiter := orchestrator.NewRedisLimiter(rdb, cfg.Conversation.MaxConcurrentCalls, cfg.Conversation.MaxDuration)

	orch := orchestrator.New(sessions, callRepo, tenantRepo, limiter, dialer,
		provider, provider, provider,
		orchestrator.Options{
			MaxTurns:      cfg.Conversation.MaxTurns,
			MaxDuration:   cfg.Conversation.MaxDuration,
			CaptureWindow: cfg.Conversation.CaptureWindow,
			STTTimeout:    cfg.AI.STTTimeout,
			LLMTimeout:    cfg.AI.LLMTimeout,
			TTSTimeout:    cfg.AI.TTSTimeout,
			MaxRetries:    cfg.AI.MaxRetries,
		}, log)
	runner := orchestrator.NewRunner(orch, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	handlers := httpapi.Handlers{
		Auth:    authManager,
		Tenants: tenantRepo,
		Calls:   callRepo,
		Adapter: adapter,
		Reports: reporting.NewService(callRepo),
		Audit:   auditor,
	}
	webhook := telephony.InboundWebhookHandler{
		Adapter:     adapter,
		Launcher:    runner,
		SharedToken: cfg.Gateway.SharedToken,
	}
	registerRoutes(r, auth.RequireAccessToken(authManager), handlers, webhook)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	// Let live conversations say goodbye before the process exits.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Conversation.MaxDuration)
	defer cancelDrain()
	if err := runner.Shutdown(drainCtx); err != nil {
		log.Error("call drain incomplete", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
