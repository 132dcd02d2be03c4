package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/lumen-chat/backend/internal/config"
	"github.com/zhouzirui/lumen-chat/backend/internal/handler"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/ai"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/chat"
	"github.com/zhouzirui/lumen-chat/backend/internal/service/dispatch"
	imagesvc "github.com/zhouzirui/lumen-chat/backend/internal/service/image"
	"github.com/zhouzirui/lumen-chat/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warnf("failed to load .env file: %v, continuing with system environment variables only", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	generator, err := ai.New(ctx, cfg.AI)
	if err != nil {
		logger.Fatalf("failed to initialize %s generator: %v", cfg.AI.Provider, err)
	}
	logger.Infof("AI provider %s initialized, text model=%s vision model=%s", cfg.AI.Provider, cfg.AI.Model, cfg.AI.VisionModel)

	chatService := chat.NewService(cfg.Session.TTL)
	dispatcher := dispatch.New(generator)
	images := imagesvc.NewProcessor(cfg.Image)

	router := handler.NewRouter(chatService, dispatcher, images, cfg.Image.MaxBytes, cfg.Server.AllowedOrigins)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Infof("Lumen Chat listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
