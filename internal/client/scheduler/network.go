package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/logging"
	"github.com/dmitrijs2005/finnysync/internal/netx"
)

const (
	DefaultProbeInterval = 10 * time.Second
	defaultProbeTimeout  = 3 * time.Second
)

// Probe returns nil when the remote can be reached.
type Probe func(ctx context.Context) error

// Pinger is satisfied by remote.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func PingProbe(p Pinger) Probe {
	return p.Ping
}

// AddressProbe dials the host of a base URL or host:port.
func AddressProbe(addr string) Probe {
	return func(ctx context.Context) error {
		return netx.Reachable(ctx, addr)
	}
}

// Network is what LocalHost needs to gate jobs on connectivity.
type Network interface {
	Reachable() bool
	// Subscribe delivers the reachability after every change. The channel
	// always holds the latest value; stale values are dropped.
	Subscribe() (<-chan bool, func())
}

// NetworkMonitor tracks reachability by probing periodically.
type NetworkMonitor struct {
	probe    Probe
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger

	mu     sync.RWMutex
	online bool
	subs   map[int]chan bool
	nextID int
}

var _ Network = (*NetworkMonitor)(nil)

func NewNetworkMonitor(probe Probe, interval time.Duration, log logging.Logger) *NetworkMonitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &NetworkMonitor{
		probe:    probe,
		interval: interval,
		timeout:  min(defaultProbeTimeout, interval),
		log:      log.With("component", "network"),
		subs:     map[int]chan bool{},
	}
}

// Run probes immediately and then on every tick until ctx is done.
func (m *NetworkMonitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check probes once and publishes the result.
func (m *NetworkMonitor) Check(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.probe(pctx)
	cancel()

	m.Set(err == nil)
	if err != nil {
		m.log.Debug(ctx, "remote unreachable", "error", err)
	}
	return err == nil
}

// Set overrides the current reachability.
func (m *NetworkMonitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.online == online {
		return
	}
	m.online = online
	if online {
		m.log.Info(context.Background(), "switched to online mode")
	} else {
		m.log.Info(context.Background(), "switched to offline mode")
	}
	for _, ch := range m.subs {
		publish(ch, online)
	}
}

func (m *NetworkMonitor) Reachable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

func (m *NetworkMonitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan bool, 1)
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// publish replaces whatever value is still buffered in ch.
func publish(ch chan bool, v bool) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
