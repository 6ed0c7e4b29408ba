// Package metrics exposes Prometheus instrumentation for archival runs and
// an optional HTTP listener that serves /metrics while a run is active.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mailarc/mailarc/logger"
)

var (
	ItemsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailarc_items_processed_total",
			Help: "Messages examined across all folders",
		},
	)

	ItemsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailarc_items_saved_total",
			Help: "Messages archived to a file",
		},
	)

	ItemsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailarc_items_skipped_total",
			Help: "Messages skipped (no route, or file already archived)",
		},
	)

	ItemsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailarc_items_deleted_total",
			Help: "Source messages deleted after successful archival",
		},
	)

	TaskErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailarc_task_errors_total",
			Help: "Errors recorded on task results, by kind",
		},
		[]string{"kind"},
	)

	GroupsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailarc_directory_groups_created_total",
			Help: "Access groups created in the directory",
		},
	)

	ConvergencePolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailarc_directory_convergence_polls_total",
			Help: "Read attempts made while waiting for directory replication",
		},
	)

	AclEntriesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailarc_acl_entries_added_total",
			Help: "Allow entries added to archived-file ACLs",
		},
	)

	SinkWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailarc_sink_writes_total",
			Help: "Message metadata rows exported to the SQL sink",
		},
	)
)

// Serve exposes /metrics on addr until ctx is cancelled. Listen errors are
// logged, not fatal: a run never fails because its metrics port is busy.
func Serve(ctx context.Context, addr string) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics listener failed", "addr", addr, "error", err)
	}
}
