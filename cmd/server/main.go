package main

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardbatch/internal/api"
	"github.com/youruser/cardbatch/internal/batch"
	"github.com/youruser/cardbatch/internal/config"
	imagepkg "github.com/youruser/cardbatch/internal/image"
	"github.com/youruser/cardbatch/internal/session"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	log := cfg.Logging.NewLogger()
	slog.SetDefault(log)
	batch.SetLogger(log)

	fonts, err := imagepkg.NewFontManager(cfg.Render.FontPath)
	if err != nil {
		log.Error("failed to load font", "err", err)
		os.Exit(1)
	}

	// Default background is best-effort; a blank card is used otherwise.
	var background image.Image
	if cfg.Render.Background != "" {
		if background, err = loadBackground(cfg.Render.Background); err != nil {
			log.Warn("failed to load default background", "path", cfg.Render.Background, "err", err)
		}
	}

	store := session.NewStore()
	driver := batch.NewDriver(imagepkg.NewRenderer(fonts), batch.Options{BlankMissing: cfg.Render.BlankMissing})
	srv := api.NewServer(store, driver, api.Options{
		MaxDimension:   cfg.Render.MaxDimension,
		Background:     background,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		FetchTimeout:   cfg.Server.FetchTimeout,
		Logger:         log,
	})

	r := gin.Default()
	api.RegisterRoutes(r, srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweep(ctx, store, cfg.Session, log)

	httpSrv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("starting server", "addr", httpSrv.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func loadBackground(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return imagepkg.DecodeImage(f)
}

func sweep(ctx context.Context, store *session.Store, cfg config.SessionConfig, log *slog.Logger) {
	if cfg.TTL <= 0 || cfg.SweepInterval <= 0 {
		return
	}
	t := time.NewTicker(cfg.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := store.Sweep(cfg.TTL); n > 0 {
				log.Info("expired sessions", "count", n, "remaining", store.Len())
			}
		}
	}
}
