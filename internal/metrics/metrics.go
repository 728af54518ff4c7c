// Package metrics exposes Prometheus counters for the turn pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "voicebot"

var (
	// Utterances counts segmented utterances by capture mode ("push", "realtime").
	Utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "utterances_total",
		Help:      "Utterances produced by the audio segmenter.",
	}, []string{"mode"})

	// FramesDropped counts frames dropped before segmentation ("echo", "queue_full").
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_dropped_total",
		Help:      "Audio frames discarded before segmentation.",
	}, []string{"reason"})

	// Fallbacks counts degraded paths taken by collaborators ("capture", "transcription", "reasoning", "render").
	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallbacks_total",
		Help:      "Failures recovered locally by a fallback path.",
	}, []string{"kind"})

	// Turns counts completed turns by routed domain.
	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Completed conversation turns.",
	}, []string{"domain"})

	// TurnDuration observes wall time from routed text to persisted snapshot.
	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "turn_duration_seconds",
		Help:      "Time spent routing, mutating and persisting one turn.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
