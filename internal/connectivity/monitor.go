package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cantrip/internal/config"
	"cantrip/internal/logging"
)

// Prober answers whether the service is currently reachable. A nil error
// means online.
type Prober interface {
	CheckHealth(ctx context.Context) error
}

// SyncFunc replays the offline queue and returns how many entries were
// delivered. The monitor invokes it exactly once per offline-to-online
// transition.
type SyncFunc func(ctx context.Context) (int, error)

// Options controls probe cadence. While offline the monitor polls
// aggressively so a restored connection is noticed quickly; while online it
// probes rarely, just enough to catch a silent drop.
type Options struct {
	OfflineInterval time.Duration
	OnlineInterval  time.Duration
}

// OptionsFromConfig derives probe intervals from application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OfflineInterval: time.Duration(cfg.Connectivity.OfflineProbeInterval) * time.Second,
		OnlineInterval:  time.Duration(cfg.Connectivity.OnlineProbeInterval) * time.Second,
	}
}

// Monitor watches service reachability and fires the sync callback on the
// offline-to-online edge. State changes are edge-triggered: staying online
// never re-fires the callback, so a drained queue is not replayed again until
// connectivity is lost and regained.
type Monitor struct {
	prober   Prober
	syncFn   SyncFunc
	onChange func(online bool)
	logger   *slog.Logger
	opts     Options

	mu     sync.Mutex
	online bool
	wake   chan struct{}
}

// New builds a Monitor. The initial state is offline, so the first successful
// probe counts as a transition and triggers a sync; a monitor started with a
// populated queue and a healthy connection drains immediately.
func New(prober Prober, syncFn SyncFunc, opts Options, logger *slog.Logger) *Monitor {
	if opts.OfflineInterval <= 0 {
		opts.OfflineInterval = 2 * time.Second
	}
	if opts.OnlineInterval <= 0 {
		opts.OnlineInterval = 30 * time.Second
	}
	return &Monitor{
		prober: prober,
		syncFn: syncFn,
		logger: logging.NewComponentLogger(logger, "connectivity"),
		opts:   opts,
		wake:   make(chan struct{}, 1),
	}
}

// OnChange registers a callback invoked on every state transition. Must be
// set before Run starts.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.onChange = fn
}

// Online reports the last observed state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOffline force-marks the monitor offline and wakes the probe loop. Used
// as a push signal when an upload fails at the network level, so fast
// polling starts without waiting for the next scheduled probe.
func (m *Monitor) SetOffline() {
	m.mu.Lock()
	wasOnline := m.online
	m.online = false
	m.mu.Unlock()

	if wasOnline {
		m.logger.Warn("connection lost",
			logging.String(logging.FieldEventType, "offline"),
		)
		if m.onChange != nil {
			m.onChange(false)
		}
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run probes until ctx is canceled. Each probe compares the observed state
// with the last known one and acts only on transitions.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		m.probe(ctx)

		interval := m.opts.OfflineInterval
		if m.Online() {
			interval = m.opts.OnlineInterval
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-m.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := m.prober.CheckHealth(probeCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	nowOnline := err == nil

	m.mu.Lock()
	wasOnline := m.online
	m.online = nowOnline
	m.mu.Unlock()

	if nowOnline == wasOnline {
		return
	}

	if !nowOnline {
		m.logger.Warn("connection lost",
			logging.String(logging.FieldEventType, "offline"),
			logging.Error(err),
		)
		if m.onChange != nil {
			m.onChange(false)
		}
		return
	}

	m.logger.Info("connection restored",
		logging.String(logging.FieldEventType, "online"),
	)
	if m.onChange != nil {
		m.onChange(true)
	}
	if m.syncFn == nil {
		return
	}
	synced, err := m.syncFn(ctx)
	if err != nil {
		// The drain halts on its first network failure; the next probe will
		// re-evaluate and retrigger once the connection truly holds.
		m.logger.Warn("queue replay interrupted",
			logging.Int("synced", synced),
			logging.Error(err),
		)
		m.SetOffline()
		return
	}
	if synced > 0 {
		m.logger.Info("offline queue replayed",
			logging.Int("synced", synced),
		)
	}
}
