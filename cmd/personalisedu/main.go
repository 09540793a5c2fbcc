// Command personalisedu runs the conversational planning assistant: a
// Telegram webhook service that grounds a language backend on per-chat
// context, exposes profile and plan/calendar generation tools, and serves
// generated calendar artifacts through temporary links.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/A-calculus/personalisedU/config"
	"github.com/A-calculus/personalisedU/content"
	"github.com/A-calculus/personalisedU/content/miniostore"
	"github.com/A-calculus/personalisedU/conversation"
	"github.com/A-calculus/personalisedU/jobs"
	"github.com/A-calculus/personalisedU/logging"
	"github.com/A-calculus/personalisedU/model"
	anthropicmodel "github.com/A-calculus/personalisedU/model/anthropic"
	geminimodel "github.com/A-calculus/personalisedU/model/gemini"
	openaimodel "github.com/A-calculus/personalisedU/model/openai"
	"github.com/A-calculus/personalisedU/profile"
	"github.com/A-calculus/personalisedU/profile/redisstore"
	"github.com/A-calculus/personalisedU/telegram"
	"github.com/A-calculus/personalisedU/tool"
	"github.com/A-calculus/personalisedU/turn"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "personalisedu:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	backend, err := buildBackend(cfg)
	if err != nil {
		return err
	}
	logger.Info("backend ready", "provider", backend.Info().Provider, "model", backend.Info().Name)

	conversations := conversation.NewStore(func(o *conversation.Options) {
		o.TTL = cfg.ContextTTL
		o.Logger = logger.WithComponent("conversation")
	})
	conversations.Start()
	defer conversations.Stop()

	profiles, closeProfiles, err := buildProfiles(cfg, logger.WithComponent("profile"))
	if err != nil {
		return err
	}
	defer closeProfiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	artifacts, err := buildArtifacts(ctx, cfg, logger.WithComponent("content"))
	if err != nil {
		return err
	}

	jobsLogger := logger.WithComponent("jobs")
	jobClient := jobs.NewClient(cfg.JobServiceURL, func(o *jobs.ClientOptions) {
		o.Logger = jobsLogger
	})
	poller := jobs.NewPoller(func(o *jobs.PollerOptions) {
		o.MaxAttempts = cfg.PollMaxAttempts
		o.PollInterval = cfg.PollInterval
		o.Logger = jobsLogger
	})

	registry := tool.NewRegistry()
	registry.MustRegister(tool.NewRetrieveProfileTool(profiles))
	registry.MustRegister(tool.NewSaveProfileTool(profiles))
	registry.MustRegister(tool.NewGeneratePlanTool(jobClient, poller, cfg.PlanTemplateID, profiles))
	registry.MustRegister(tool.NewGenerateCalendarTool(jobClient, poller, cfg.CalendarTemplateID, profiles, artifacts, func(o *tool.GenerateCalendarOptions) {
		o.LinkTTL = cfg.LinkTTL
	}))
	dispatcher := tool.NewDispatcher(registry, func(o *tool.DispatcherOptions) {
		o.Logger = logger.WithComponent("tool")
	})

	processor := turn.NewProcessor(conversations, registry, dispatcher, backend, func(o *turn.Options) {
		o.Logger = logger.WithComponent("turn")
	})

	telegramLogger := logger.WithComponent("telegram")
	bot := telegram.NewClient(cfg.TelegramToken, func(o *telegram.ClientOptions) {
		o.Logger = telegramLogger
	})
	webhook := telegram.NewHandler(processor, bot, func(o *telegram.HandlerOptions) {
		o.Logger = telegramLogger
	})

	mux := http.NewServeMux()
	mux.Handle("/api/telegram", withRequestID(logger.WithComponent("http"), webhook))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) *logging.ServiceLogger {
	var level logging.LogLevel
	switch cfg.LogLevel {
	case "debug":
		level = logging.LogLevelDebug
	case "warn":
		level = logging.LogLevelWarn
	case "error":
		level = logging.LogLevelError
	default:
		level = logging.LogLevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	})
}

func buildBackend(cfg *config.Config) (model.Model, error) {
	switch cfg.ModelProvider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.APIKey = cfg.OpenAIAPIKey
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.AnthropicAPIKey
		}), nil
	case config.ProviderGemini:
		return geminimodel.NewModel(func(o *geminimodel.Options) {
			o.APIKey = cfg.GeminiAPIKey
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}
}

func buildProfiles(cfg *config.Config, logger logging.Logger) (profile.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL unset; profiles are stored in memory and lost on restart")
		return profile.NewInMemoryStore(), func() {}, nil
	}
	store, err := redisstore.NewStore(cfg.RedisURL, func(o *redisstore.Options) {
		o.Logger = logger
	})
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func buildArtifacts(ctx context.Context, cfg *config.Config, logger logging.Logger) (content.Store, error) {
	if cfg.Minio.Endpoint == "" {
		logger.Warn("MINIO_ENDPOINT unset; calendar artifacts are stored in memory and lost on restart")
		return content.NewInMemoryStore(), nil
	}
	store, err := miniostore.NewStore(miniostore.Config{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
	}, func(o *miniostore.Options) {
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// withRequestID tags every webhook request with a generated id for log
// correlation.
func withRequestID(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		logger.Debug("request received", "request_id", id, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
