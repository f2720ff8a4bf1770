package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hitcounter/client"
	"hitcounter/config"
	"hitcounter/web"
)

func main() {
	logger := log.New(os.Stdout, "web: ", log.LstdFlags)

	env, err := config.ParseEnv()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	cache := client.New(env.CacheAddr, env.CacheRetries, env.CacheRetryDelay)
	defer cache.Close()

	handler := web.NewHandler(cache, logger)

	srv := &http.Server{
		Addr:              env.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Printf("Serving on %s, cache at %s", env.HTTPAddr, env.CacheAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("Server forced to shutdown: %v", err)
	}

	logger.Println("Server stopped")
}
