package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"ms-checkin/internal/app"
	"ms-checkin/internal/checkin/kiosk_api"
	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	minLevel := logger.INFO
	if cfg.Logging.Debug {
		minLevel = logger.DEBUG
	}
	log, err := logger.NewLogger(logger.Options{Dir: cfg.Logging.Dir, Name: "kiosk", Color: cfg.Logging.Color, MinLevel: minLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("APP", err.Error())
	}
	defer a.Close()

	handler := kiosk_api.NewHandler(a.Deps(), a.Client, a.History(), a.Store, a.QR, log)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Route("/kiosk", handler.RegisterRoutes)
	log.Info("ROUTER", "Kiosk routes registered under /kiosk")

	server := &http.Server{
		Addr:    cfg.Kiosk.Addr,
		Handler: r,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Kiosk running on %s", cfg.Kiosk.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Kiosk.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Kiosk shutdown complete")
	}
}
