/*
Package main is the entry point for the GatherChat presence and delivery server.

It loads configuration, initializes logging, wires the message store, media store,
presence registry, broadcaster and dispatcher together, serves HTTP and WebSocket
traffic, and shuts everything down gracefully on SIGINT or SIGTERM.
*/
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

	"gatherchat/internal/app/chat"
	"gatherchat/internal/app/db"
	"gatherchat/internal/app/delivery"
	"gatherchat/internal/app/message"
	"gatherchat/internal/app/presence"
	"gatherchat/internal/app/storage"
	"gatherchat/internal/configs"
	"gatherchat/internal/handler"
	"gatherchat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Dur("push_timeout", cfg.PushTimeout).
		Bool("media_enabled", cfg.MediaEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store message.Store
	if cfg.DatabaseDSN != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize database")
		}
		defer pool.Close()
		store = db.NewMessageStore(pool)
	} else {
		logx.Warn("DATABASE_URL not set, using the in-memory message store. Messages are lost on restart.")
		store = message.NewMemoryStore()
	}

	var media *storage.MediaResolver
	if cfg.MediaEnabled() {
		storageService, err := storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage service")
		}
		media = storage.NewMediaResolver(storageService, storage.MediaConfig{
			PublicBaseURL: cfg.S3PublicBaseURL,
			MaxImageBytes: int64(cfg.MaxImageBytes),
		})
	} else {
		logx.Warn("S3 settings incomplete, image messages are disabled.")
	}

	registry := presence.NewRegistry()
	registry.Subscribe(presence.NewBroadcaster(registry, cfg.PushTimeout))

	messages := message.NewService(store)
	dispatcher := delivery.NewDispatcher(registry, cfg.PushTimeout)
	manager := chat.NewManager(registry, messages, media, dispatcher)

	router := handler.Router(ctx, &handler.AppDeps{
		Config:     cfg,
		Manager:    manager,
		Messages:   messages,
		Dispatcher: dispatcher,
		Media:      media,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info("GatherChat server starting", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	// Hijacked websocket connections are not tracked by the HTTP server; close them first.
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "WebSocket connections did not close in time")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
