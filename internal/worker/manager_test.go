package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/romanzzaa/cortex-alerts/internal/usecase"
)

type blockingRunner struct {
	once    sync.Once
	started chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{})}
}

func (r *blockingRunner) Run(ctx context.Context) {
	r.once.Do(func() { close(r.started) })
	<-ctx.Done()
}

type panickyRunner struct {
	runs atomic.Int64
}

func (r *panickyRunner) Run(ctx context.Context) {
	if r.runs.Add(1) == 1 {
		panic("simulated crash")
	}
	<-ctx.Done()
}

func idleEngine() *usecase.AlertEngine {
	// An interval of an hour keeps the evaluator tickers from ever firing
	// during a test run.
	return usecase.NewAlertEngine(nil, nil, nil, nil, nil, nil, nil)
}

func TestManagerRunsAndStopsAllLoops(t *testing.T) {
	streamer := newBlockingRunner()
	refresher := newBlockingRunner()
	m := NewManager(streamer, refresher, idleEngine(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	<-streamer.started
	<-refresher.started
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop after cancellation")
	}
}

func TestManagerSurvivesPanickingLoop(t *testing.T) {
	streamer := &panickyRunner{}
	refresher := newBlockingRunner()
	m := NewManager(streamer, refresher, idleEngine(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	<-refresher.started

	// The streamer panic must not take the manager down, and the loop must
	// come back.
	assert.Eventually(t, func() bool { return streamer.runs.Load() >= 2 },
		5*time.Second, 50*time.Millisecond, "panicked loop was not restarted")

	select {
	case <-done:
		t.Fatal("manager exited because one loop panicked")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop after cancellation")
	}
}
