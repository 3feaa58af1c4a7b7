package history

import (
	"context"
	"sync"
	"time"
)

// Janitor defaults.
const (
	defaultRetention     = 24 * time.Hour
	defaultPruneInterval = time.Hour
	pruneTimeout         = 30 * time.Second
)

// Logger defines the logging interface used by the Janitor.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Janitor prunes old state history rows on a fixed interval.
//
// One prune runs immediately on Start to clear any backlog from
// downtime, then the loop fires every interval until Stop.
type Janitor struct {
	recorder  *Recorder
	retention time.Duration
	interval  time.Duration
	logger    Logger

	mu       sync.Mutex
	started  bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewJanitor creates a janitor for the given recorder.
// Non-positive retention or interval values fall back to the defaults
// (24h retention, hourly prune).
func NewJanitor(recorder *Recorder, retention, interval time.Duration) *Janitor {
	if retention <= 0 {
		retention = defaultRetention
	}
	if interval <= 0 {
		interval = defaultPruneInterval
	}
	return &Janitor{
		recorder:  recorder,
		retention: retention,
		interval:  interval,
		logger:    noopLogger{},
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for the janitor.
func (j *Janitor) SetLogger(logger Logger) {
	j.logger = logger
}

// Start launches the prune loop. Subsequent calls are no-ops.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started {
		return
	}
	j.started = true

	j.wg.Add(1)
	go j.run()
}

// Stop halts the prune loop and waits for it to exit.
// Safe to call multiple times and before Start.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
	})
	j.wg.Wait()
}

// run is the janitor goroutine. One prune up front, then on the ticker.
func (j *Janitor) run() {
	defer j.wg.Done()

	j.prune()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.prune()
		}
	}
}

// prune deletes rows older than the retention window.
func (j *Janitor) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	deleted, err := j.recorder.Prune(ctx, j.retention)
	if err != nil {
		j.logger.Error("history prune failed", "error", err)
		return
	}
	if deleted > 0 {
		j.logger.Debug("history pruned",
			"deleted", deleted,
			"retention", j.retention.String(),
		)
	}
}
