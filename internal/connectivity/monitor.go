// Package connectivity tracks whether the remote endpoint is reachable and
// notifies listeners when it comes back.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Pinger is satisfied by *gateway.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	pinger   Pinger
	interval time.Duration
	logger   *slog.Logger

	online atomic.Bool

	mu        sync.Mutex
	listeners []func()

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor returns a monitor that starts out online. A nil pinger leaves
// the state under manual control through Set.
func NewMonitor(p Pinger, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{pinger: p, interval: interval, logger: logger, stop: make(chan struct{})}
	m.online.Store(true)
	return m
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// OnReconnect registers fn to run on every offline to online transition.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Set records the connectivity state and fires the reconnect listeners when
// it moves from offline to online.
func (m *Monitor) Set(online bool) {
	prev := m.online.Swap(online)
	if prev == online {
		return
	}
	m.logger.Info("connectivity changed", "online", online)
	if !online {
		return
	}

	m.mu.Lock()
	listeners := append([]func(){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Probe pings once and records the outcome.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.pinger == nil {
		return m.Online()
	}
	err := m.pinger.Ping(ctx)
	if err != nil {
		m.logger.Debug("connectivity probe failed", "err", err)
	}
	m.Set(err == nil)
	return err == nil
}

// Start probes immediately and then every interval until Stop or ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	if m.pinger == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Probe(ctx)
		for {
			select {
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Probe(ctx)
			}
		}
	}()
}

// Stop halts probing and waits for the probe loop to exit. Safe to call more
// than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}
