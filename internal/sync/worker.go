package sync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Worker wakes the engine on a fixed interval, independent of request
// traffic. The next run is scheduled unconditionally: a failed or partial
// batch never stops the loop. One worker instance exists per process.
type Worker struct {
	engine   *Engine
	interval time.Duration
	stop     chan struct{}
}

// NewWorker creates a sync worker
func NewWorker(engine *Engine, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Worker{
		engine:   engine,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the background loop in its own goroutine
func (w *Worker) Start() {
	go func() {
		logrus.WithField("interval", w.interval.String()).Info("CRM sync worker started")

		// Short startup delay so the first run lands after migrations settle
		select {
		case <-time.After(5 * time.Second):
		case <-w.stop:
			return
		}
		w.run()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.run()
			case <-w.stop:
				logrus.Info("CRM sync worker stopped")
				return
			}
		}
	}()
}

// Stop halts the worker
func (w *Worker) Stop() {
	close(w.stop)
}

func (w *Worker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	if _, err := w.engine.ProcessPendingSyncs(ctx); err != nil {
		logrus.WithError(err).Error("Scheduled sync batch aborted")
	}
}
