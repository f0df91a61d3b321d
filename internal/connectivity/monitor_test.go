package connectivity_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cantrip/internal/connectivity"
)

type fakeProber struct {
	mu     sync.Mutex
	err    error
	probes int
}

func (p *fakeProber) CheckHealth(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakeProber) probeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes
}

type syncRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *syncRecorder) sync(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 0, s.err
}

func (s *syncRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testOptions() connectivity.Options {
	return connectivity.Options{
		OfflineInterval: 5 * time.Millisecond,
		OnlineInterval:  5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestMonitorSyncsOnReconnect(t *testing.T) {
	prober := &fakeProber{}
	prober.setErr(errors.New("dial tcp: connection refused"))
	recorder := &syncRecorder{}
	monitor := connectivity.New(prober, recorder.sync, testOptions(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = monitor.Run(ctx)
	}()

	// Stays offline and quiet while probes keep failing.
	waitFor(t, "offline probes", func() bool { return prober.probeCount() >= 3 })
	if monitor.Online() {
		t.Fatal("expected monitor to report offline")
	}
	if recorder.count() != 0 {
		t.Fatalf("sync fired while offline: %d calls", recorder.count())
	}

	prober.setErr(nil)
	waitFor(t, "reconnect sync", func() bool { return recorder.count() == 1 })
	waitFor(t, "online state", monitor.Online)

	// Staying online must not re-fire the sync.
	probes := prober.probeCount()
	waitFor(t, "further online probes", func() bool { return prober.probeCount() >= probes+3 })
	if recorder.count() != 1 {
		t.Fatalf("expected exactly one sync, got %d", recorder.count())
	}

	cancel()
	<-done
}

func TestMonitorSyncsOncePerTransition(t *testing.T) {
	prober := &fakeProber{}
	recorder := &syncRecorder{}
	monitor := connectivity.New(prober, recorder.sync, testOptions(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = monitor.Run(ctx) }()

	waitFor(t, "initial sync", func() bool { return recorder.count() == 1 })

	// A push signal forces offline; the next successful probe is a fresh
	// transition and replays again.
	monitor.SetOffline()
	waitFor(t, "second sync", func() bool { return recorder.count() == 2 })
}

func TestMonitorReportsStateChanges(t *testing.T) {
	prober := &fakeProber{}
	monitor := connectivity.New(prober, nil, testOptions(), nil)

	var mu sync.Mutex
	var changes []bool
	monitor.OnChange(func(online bool) {
		mu.Lock()
		changes = append(changes, online)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = monitor.Run(ctx) }()

	waitFor(t, "online transition", monitor.Online)

	prober.setErr(errors.New("connection reset"))
	waitFor(t, "offline transition", func() bool { return !monitor.Online() })

	mu.Lock()
	defer mu.Unlock()
	if len(changes) < 2 || changes[0] != true || changes[1] != false {
		t.Fatalf("unexpected transition sequence: %v", changes)
	}
}

func TestMonitorGoesOfflineWhenSyncHalts(t *testing.T) {
	prober := &fakeProber{}
	recorder := &syncRecorder{err: errors.New("dial tcp: connection refused")}
	monitor := connectivity.New(prober, recorder.sync, testOptions(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = monitor.Run(ctx) }()

	// A replay halted by a network failure resets the edge, so the monitor
	// keeps retrying the sync on subsequent successful probes.
	waitFor(t, "sync retries", func() bool { return recorder.count() >= 2 })
}
