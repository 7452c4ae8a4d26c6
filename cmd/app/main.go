package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/local/imageplanner/internal/capture"
	cfgpkg "github.com/local/imageplanner/internal/config"
	"github.com/local/imageplanner/internal/extract"
	"github.com/local/imageplanner/internal/limiter"
	logpkg "github.com/local/imageplanner/internal/logger"
	"github.com/local/imageplanner/internal/metrics"
	"github.com/local/imageplanner/internal/optimize"
	"github.com/local/imageplanner/internal/pipeline"
	"github.com/local/imageplanner/internal/server"
	"github.com/local/imageplanner/internal/statuscheck"
	"github.com/local/imageplanner/internal/storage"
	"github.com/local/imageplanner/internal/store"
	"github.com/local/imageplanner/internal/web"
	"github.com/local/imageplanner/internal/youtube"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	// Status store
	st, err := store.NewRedisStore(cfg.Redis.URL, cfg.Redis.ResultTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer st.Close()

	// Optional plan archive
	var archive server.Archive
	if cfg.Archive.Bucket != "" {
		a, err := storage.NewPlanArchive(context.Background(), cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init plan archive")
		}
		archive = a
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("plan archive enabled")
	}

	// Pipeline capabilities
	httpClient := &http.Client{Timeout: cfg.Fetch.Timeout}
	optimizer := optimize.New(httpClient)
	if lim, err := limiter.New(limiter.Options{
		RedisURL:    cfg.Redis.URL,
		MaxInflight: cfg.Fetch.MaxInflightPerHost,
	}); err != nil {
		log.Warn().Err(err).Msg("fetch limiter unavailable; continuing without")
	} else {
		optimizer.WithLimiter(lim)
		defer lim.Close()
	}
	engine := pipeline.New(
		extract.New(httpClient),
		capture.NewChromeCapturer(cfg.Fetch.CaptureTimeout),
		optimizer,
	)

	srv := server.New(server.Dependencies{
		Engine:  engine,
		Status:  st,
		Archive: archive,
		Videos:  youtube.New(httpClient),
	})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	// Operator dashboard
	checker := statuscheck.New(statuscheck.Options{Redis: st, ArchiveBucket: cfg.Archive.Bucket})
	web.New(checker).RegisterRoutes(mux)

	httpSrv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}
