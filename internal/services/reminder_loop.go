package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultReminderInterval is how often reminders are evaluated.
const DefaultReminderInterval = 8 * time.Hour

// ReminderLoop runs a reminder pass on start and then on every tick.
type ReminderLoop struct {
	processor *ReminderProcessor
	interval  time.Duration
	now       func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReminderLoop(processor *ReminderProcessor, interval time.Duration) *ReminderLoop {
	if interval <= 0 {
		interval = DefaultReminderInterval
	}
	return &ReminderLoop{
		processor: processor,
		interval:  interval,
		now:       time.Now,
	}
}

// Start begins the loop. Returns an error if already running.
func (l *ReminderLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("reminder loop is already running")
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	stopCh, doneCh := l.stopCh, l.doneCh
	l.mu.Unlock()

	go l.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Reminder loop started", "interval", l.interval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (l *ReminderLoop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	stopCh, doneCh := l.stopCh, l.doneCh
	l.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Reminder loop stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reminder loop stop timed out")
		return ctx.Err()
	}
}

func (l *ReminderLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Run blocks until ctx is done, running a pass per tick.
func (l *ReminderLoop) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := l.Stop(stopCtx); err != nil {
		return err
	}
	return nil
}

func (l *ReminderLoop) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// Evaluate immediately on startup
	l.pass(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.pass(ctx)
		}
	}
}

func (l *ReminderLoop) pass(ctx context.Context) {
	if _, err := l.processor.RunReminderPass(ctx, l.now()); err != nil {
		slog.ErrorContext(ctx, "Reminder pass failed", "error", err)
	}
}
