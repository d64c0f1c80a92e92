package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SaintWyss/rag-corp-sub001/pkg/bootstrap"
	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		logging.Errorf("ragserver: failed to build app: %v", err)
		os.Exit(1)
	}

	logging.Infof("ragserver: starting")

	go func() {
		if err := app.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("ragserver: server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("ragserver: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		logging.Errorf("ragserver: error during shutdown: %v", err)
	}
	logging.Infof("ragserver: stopped")
}
