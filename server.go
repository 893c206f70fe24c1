package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/vidgate/vidgate-server/config"
	"github.com/vidgate/vidgate-server/database"
	"github.com/vidgate/vidgate-server/mediastore"
	"github.com/vidgate/vidgate-server/portal"
	"github.com/vidgate/vidgate-server/search"
	"github.com/vidgate/vidgate-server/store"
	"github.com/vidgate/vidgate-server/thumbnail"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	if cfg.Session.Secret == "" {
		logger.Warn().Msg("session.secret not set, sessions are signed with an empty key and will not survive restarts")
	}

	if err := os.MkdirAll(cfg.Storage.Datadir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("datadir", cfg.Storage.Datadir).Msg("failed to create data directory")
	}

	tabular, err := store.New(&store.Options{
		Datadir: cfg.Storage.Datadir,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open tabular store")
	}

	media, err := mediastore.New(&mediastore.Options{
		Root:   cfg.Storage.Mediadir,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open media store")
	}

	repo, err := database.New(&database.Options{
		Filename: filepath.Join(cfg.Storage.Datadir, "vidgate.db"),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}

	index, err := search.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create search index")
	}

	extractor := thumbnail.New(&thumbnail.Options{
		FfmpegPath:  cfg.Ffmpeg.FfmpegPath,
		FfprobePath: cfg.Ffmpeg.FfprobePath,
		Logger:      logger,
	})

	p := portal.New(&portal.Options{
		Store:          tabular,
		Media:          media,
		Thumbnailer:    extractor,
		Repo:           repo,
		Search:         index,
		SessionSecret:  cfg.Session.Secret,
		SessionMaxAge:  cfg.Session.MaxAge,
		UploadMaxBytes: cfg.Upload.MaxBytes,
		Logger:         logger,
	})

	router := mux.NewRouter()
	p.RegisterHandlers(router)

	addr := fmt.Sprintf(":%d", cfg.Listen.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           httpLog(logger, router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info().Str("addr", addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
