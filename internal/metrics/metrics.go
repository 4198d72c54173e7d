// Package metrics exposes pipeline counters for observability.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run holds the per-run pipeline counters.
type Run struct {
	Fetched     prometheus.Counter
	FilteredOut prometheus.Counter
	Drafted     prometheus.Counter
	ScanBlocked prometheus.Counter
	Sent        prometheus.Counter
	DraftSaved  prometheus.Counter
	Discarded   prometheus.Counter
	Failed      prometheus.Counter
}

// NewRun registers the counters with reg and returns them.
func NewRun(reg prometheus.Registerer) *Run {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: "replygate",
			Name:      name,
			Help:      help,
		})
	}
	return &Run{
		Fetched:     counter("messages_fetched_total", "Messages fetched from the mailbox."),
		FilteredOut: counter("messages_filtered_total", "Messages rejected by the eligibility filter."),
		Drafted:     counter("replies_drafted_total", "Reply bodies produced by the drafter."),
		ScanBlocked: counter("replies_scan_blocked_total", "Drafts that needed redaction before approval."),
		Sent:        counter("replies_sent_total", "Approved replies sent."),
		DraftSaved:  counter("replies_draft_saved_total", "Replies saved as provider-side drafts."),
		Discarded:   counter("replies_discarded_total", "Replies discarded by operator decision or timeout."),
		Failed:      counter("messages_failed_total", "Messages whose pipeline run ended in failure."),
	}
}

// Serve exposes /metrics on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
