// Command ragworker is the queue consumer: it pops document-ingestion jobs
// pushed by the API process and runs each through the ingestion pipeline,
// alongside a minimal liveness/readiness HTTP server. Grounded on the
// teacher's worker process shape (health server started before the work
// loop, signal-driven shutdown) and the original worker's split between a
// blocking job loop and a side-channel health server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/SaintWyss/rag-corp-sub001/pkg/api"
	"github.com/SaintWyss/rag-corp-sub001/pkg/bootstrap"
	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
	"github.com/SaintWyss/rag-corp-sub001/pkg/queue"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		logging.Errorf("ragworker: failed to build app: %v", err)
		os.Exit(1)
	}

	healthServer := startHealthServer(app)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Infof("ragworker: starting, queue=%s", queue.DefaultQueueName)
	app.Queue.Run(ctx, 5*time.Second, func(ctx context.Context, job queue.Job) error {
		outcome, err := app.Pipeline.Process(ctx, job.DocumentID, job.WorkspaceID)
		if err != nil {
			return fmt.Errorf("document %d: %w", job.DocumentID, err)
		}
		logging.Infof("ragworker: document %d workspace %d finished as %s", job.DocumentID, job.WorkspaceID, outcome)
		return nil
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("ragworker: error shutting down health server: %v", err)
	}
	logging.Infof("ragworker: stopped")
}

func startHealthServer(app *bootstrap.App) *http.Server {
	mux := http.NewServeMux()
	health := api.NewHealthHandler(app.DB)
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.Handle("/metrics", api.Metrics())

	port := workerHTTPPort()
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("ragworker: health server error: %v", err)
		}
	}()
	logging.Infof("ragworker: health server listening on port %d", port)
	return srv
}

func workerHTTPPort() int {
	if v := os.Getenv("WORKER_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}
	return 8001
}
