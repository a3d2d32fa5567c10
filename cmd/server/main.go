package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/api"
	"gwi.com/aiclone/internal/auth"
	"gwi.com/aiclone/internal/config"
	"gwi.com/aiclone/internal/core"
	"gwi.com/aiclone/internal/logging"
	"gwi.com/aiclone/internal/mail"
	"gwi.com/aiclone/internal/store"
)

func main() {
	convertCSV := flag.String("convert-csv", "", "Convert a question,answer CSV into the QA dataset and exit")
	exportLearned := flag.String("export-learned", "", "Export learned QA entries to a CSV file and exit")
	flag.Parse()

	if err := config.LoadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if *convertCSV != "" {
		if err := runConvertCSV(*convertCSV, cfg.QAModelPath, logger); err != nil {
			logger.WithError(err).Fatal("CSV conversion failed")
		}
		return
	}

	ctx := context.Background()
	dbStore, err := store.Open(ctx, cfg.StoreDriver, cfg.MongoURL, cfg.MongoDB, cfg.SQLitePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer dbStore.Close(context.Background())

	if *exportLearned != "" {
		if err := runExportLearned(ctx, dbStore, *exportLearned, logger); err != nil {
			logger.WithError(err).Fatal("learned export failed")
		}
		return
	}

	opts := core.ResolverOptions{
		Threshold: core.DefaultMatchThreshold,
		Timeout:   cfg.LLMTimeout,
	}
	var analyzer core.MediaAnalyzer
	if cfg.GroqAPIKey != "" {
		opts.Primary = core.NewGroqProvider(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel, cfg.LLMTimeout)
	} else {
		logger.Warn("GROQ_API_KEY not set, primary provider disabled")
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := core.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Gemini provider")
		}
		defer gemini.Close()
		opts.Secondary = gemini
		analyzer = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, backup provider and media analysis disabled")
	}
	if cfg.SearchEnabled {
		opts.Searcher = core.NewDuckDuckGoSearcher(cfg.SearchURL, cfg.SearchTimeout, cfg.SearchRate)
	}

	pairs, err := core.LoadQAFile(cfg.QAModelPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load QA dataset")
	}
	matcher := core.NewQAMatcher(pairs)
	cache := core.NewResponseCache(cfg.CacheTTL, cfg.CacheMaxEntries)
	sessions := core.NewSessionStore(cfg.SessionTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	resolver := core.NewResolver(cache, matcher, opts, core.NewMetrics(reg), logger)

	learned := core.NewLearnedService(dbStore, matcher, cache, logger)
	if n, err := learned.Preload(ctx); err != nil {
		logger.WithError(err).Warn("Failed to preload learned QA")
	} else {
		logger.WithField("entries", n).Info("learned QA preloaded")
	}

	media, err := core.NewMediaService(cfg.UploadDir, cfg.MaxUploadBytes, analyzer, cfg.LLMTimeout, sessions, learned, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize media service")
	}

	builtin, err := auth.NewBuiltinSource(cfg.BuiltinAccounts)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load builtin accounts")
	}
	authenticator := auth.NewAuthenticator(builtin, auth.NewStoreSource(dbStore))
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.ResetTokenTTL)
	mailer := mail.NewService(cfg, logger)
	if !mailer.Configured() {
		logger.Warn("SENDER_EMAIL not set, account emails will not be sent")
	}
	users := core.NewUserService(dbStore, authenticator, tokens,
		mail.NewValidator(cfg.RequireGmail, cfg.CheckMX, logger), mailer, cfg.FrontendURL, logger)
	if err := users.SeedBuiltin(ctx, cfg.BuiltinAccounts); err != nil {
		logger.WithError(err).Warn("Failed to seed builtin accounts")
	}

	apiHandler := api.NewAPIHandler(api.Services{
		Chat:    core.NewChatService(resolver, dbStore, sessions, learned, logger),
		Media:   media,
		Clones:  core.NewCloneService(dbStore, logger),
		Users:   users,
		Profile: core.NewProfileService(dbStore, logger),
	}, logger)
	router := api.NewRouter(apiHandler, logger, reg, cfg.UploadDir)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second, // uploads up to MAX_UPLOAD_BYTES
		WriteTimeout: 90 * time.Second, // two provider calls can run back to back
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": serverAddr, "store": cfg.StoreDriver}).Info("Starting server. Press Ctrl+C to quit.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatalf("Could not listen on %s", serverAddr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return
	}
	logger.Info("Server exiting gracefully")
}
