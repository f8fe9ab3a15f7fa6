package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"homestream/internal/assets"
	"homestream/internal/auth"
	"homestream/internal/media"
	"homestream/internal/server"
	"homestream/internal/stream"
	"homestream/internal/watch"
	"homestream/pkg/logger"
)

type config struct {
	Port              string
	AppSecret         string
	AdminPassword     string
	MediaRoot         string
	DataDir           string
	FFmpegPath        string
	PreprocessWorkers int
	TranscodeTimeout  time.Duration
	SnapshotTTL       time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		Port:              envDefault("PORT", "3000"),
		AppSecret:         os.Getenv("APP_SECRET"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		MediaRoot:         envDefault("MEDIA_ROOT", "media"),
		DataDir:           envDefault("DATA_DIR", "data"),
		FFmpegPath:        envDefault("FFMPEG_PATH", "ffmpeg"),
		PreprocessWorkers: envDefaultInt("PREPROCESS_WORKERS", 2),
		TranscodeTimeout:  envDefaultDuration("TRANSCODE_TIMEOUT", 30*time.Minute),
		SnapshotTTL:       envDefaultDuration("SNAPSHOT_TTL", 2*time.Second),
	}
	if cfg.AppSecret == "" {
		return cfg, fmt.Errorf("APP_SECRET is required")
	}
	if cfg.AdminPassword == "" {
		return cfg, fmt.Errorf("ADMIN_PASSWORD is required")
	}
	return cfg, nil
}

func main() {
	log := logger.New()
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	authSvc := auth.NewService(cfg.AppSecret, cfg.AdminPassword)
	builder := media.NewBuilder(cfg.MediaRoot, log)
	catalogCache := media.NewSnapshotCache(builder, cfg.SnapshotTTL)
	store, err := assets.NewStore(cfg.DataDir, cfg.FFmpegPath, log,
		assets.WithTimeout(cfg.TranscodeTimeout))
	if err != nil {
		log.Fatal().Err(err).Msg("asset store init failed")
	}
	engine := stream.NewEngine(cfg.FFmpegPath, log)
	srv := server.New(catalogCache, store, engine, authSvc, log)

	ctx := context.Background()

	// Initial scan plus opportunistic cache warming; requests never wait on
	// either.
	go func() {
		catalog, err := builder.Build()
		if err != nil {
			log.Error().Err(err).Msg("initial media scan failed")
			return
		}
		entries := catalog.Entries()
		log.Info().Int("files", len(entries)).Msg("media scan complete")
		store.Preprocess(ctx, entries, cfg.PreprocessWorkers)
	}()

	watcher, err := watch.New(cfg.MediaRoot, catalogCache, func(entry media.Entry) {
		go store.Preprocess(ctx, []media.Entry{entry}, 1)
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("media watcher disabled")
	} else {
		go watcher.Run(ctx)
	}

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("media_root", cfg.MediaRoot).Msg("server listening")
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func envDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func envDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.Atoi(v); err == nil {
			return out
		}
	}
	return def
}

func envDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if out, err := time.ParseDuration(v); err == nil {
			return out
		}
	}
	return def
}
