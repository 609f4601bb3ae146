package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/romanzzaa/cortex-alerts/internal/usecase"
)

// runner is a long-lived loop owned by the Manager.
type runner interface {
	Run(ctx context.Context)
}

// Manager supervises the four long-lived loops: the websocket streamer, the
// daily refresher, and the two evaluator tickers. Each loop owns its own
// error boundary; one failing loop never tears down the others.
type Manager struct {
	streamer  runner
	refresher runner
	engine    *usecase.AlertEngine
	interval  time.Duration
	logger    *slog.Logger
}

func NewManager(streamer runner, refresher runner, engine *usecase.AlertEngine, interval time.Duration) *Manager {
	return &Manager{
		streamer:  streamer,
		refresher: refresher,
		engine:    engine,
		interval:  interval,
		logger:    slog.Default().With("component", "manager"),
	}
}

// Run blocks until ctx is cancelled and every loop has exited.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup

	loops := map[string]func(context.Context){
		"streamer":        m.streamer.Run,
		"daily_refresher": m.refresher.Run,
		"alert_loop":      m.alertLoop,
		"strategy_loop":   m.strategyLoop,
	}

	for name, loop := range loops {
		name, loop := name, loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.guard(ctx, name, loop)
		}()
	}

	m.logger.Info("all loops started", "check_interval", m.interval)
	wg.Wait()
	m.logger.Info("all loops stopped")
}

// guard keeps a loop alive across panics until shutdown.
func (m *Manager) guard(ctx context.Context, name string, loop func(context.Context)) {
	for {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					m.logger.Error("loop panicked", "loop", name, "panic", rec)
				}
			}()
			loop(ctx)
		}()

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
			m.logger.Warn("restarting loop", "loop", name)
		}
	}
}

func (m *Manager) alertLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := m.engine.CheckAlerts(ctx)
			if err != nil {
				m.logger.Error("alert tick failed", "err", err)
			} else if count > 0 {
				m.logger.Info("alerts triggered", "count", count)
			}
		}
	}
}

func (m *Manager) strategyLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := m.engine.CheckSectorStrategies(ctx)
			if err != nil {
				m.logger.Error("strategy tick failed", "err", err)
			} else if count > 0 {
				m.logger.Info("sector strategies triggered", "count", count)
			}
		}
	}
}
