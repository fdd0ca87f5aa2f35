// services/network_monitor.go
package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// NetworkStatus is the current connectivity state.
type NetworkStatus string

const (
	NetworkOnline  NetworkStatus = "online"
	NetworkOffline NetworkStatus = "offline"
	NetworkUnknown NetworkStatus = "unknown"
)

// Connectivity is the read surface consumers need from the monitor.
type Connectivity interface {
	Status() NetworkStatus
	IsOnline() bool
	IsOffline() bool
}

// NetworkMonitor probes connectivity on an interval and notifies subscribers
// on actual status transitions, not on every probe. Starts unknown until the
// first probe resolves.
type NetworkMonitor struct {
	mu        sync.Mutex
	status    NetworkStatus
	probe     func(ctx context.Context) error
	listeners map[int]func(NetworkStatus)
	nextID    int
}

// NewNetworkMonitor builds a monitor around a probe. A nil error from the
// probe means online.
func NewNetworkMonitor(probe func(ctx context.Context) error) *NetworkMonitor {
	return &NetworkMonitor{
		status:    NetworkUnknown,
		probe:     probe,
		listeners: map[int]func(NetworkStatus){},
	}
}

func (m *NetworkMonitor) Status() NetworkStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *NetworkMonitor) IsOnline() bool  { return m.Status() == NetworkOnline }
func (m *NetworkMonitor) IsOffline() bool { return m.Status() == NetworkOffline }

// Subscribe registers a transition listener and returns its unsubscribe
// function.
func (m *NetworkMonitor) Subscribe(fn func(NetworkStatus)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// CheckNow re-probes immediately and notifies on transition. Also the manual
// re-check operation exposed to the UI.
func (m *NetworkMonitor) CheckNow(ctx context.Context) NetworkStatus {
	status := NetworkOnline
	if err := m.probe(ctx); err != nil {
		status = NetworkOffline
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	var toNotify []func(NetworkStatus)
	if status != prev {
		for _, fn := range m.listeners {
			toNotify = append(toNotify, fn)
		}
	}
	m.mu.Unlock()

	if status != prev {
		log.Printf("[NET] Connectivity changed: %s → %s", prev, status)
		for _, fn := range toNotify {
			fn(status)
		}
	}
	return status
}

// Start runs the probe loop until ctx is cancelled.
func (m *NetworkMonitor) Start(ctx context.Context, interval time.Duration) {
	log.Println("Starting network monitor...")
	m.CheckNow(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Network monitor stopped.")
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}
