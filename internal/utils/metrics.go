package utils

import (
	"sync"
	"time"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	mu            sync.RWMutex
	requestCount  uint64
	errorCount    uint64
	messagesSent  uint64
	subscriptions int64 // currently live subscription callbacks

	// Maps operation name to list of latencies in nanoseconds
	operationTimes map[string][]int64

	systemStartTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string][]int64),
		systemStartTime: time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) IncrementMessagesSent() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.messagesSent++
}

func (mc *MetricsCollector) SubscriptionOpened() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.subscriptions++
}

func (mc *MetricsCollector) SubscriptionClosed() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.subscriptions--
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.operationTimes[operationName]; !exists {
		mc.operationTimes[operationName] = make([]int64, 0)
	}
	mc.operationTimes[operationName] = append(
		mc.operationTimes[operationName],
		duration.Nanoseconds(),
	)
}

// MetricsSnapshot is a point-in-time view of the collected counters, used by
// the health endpoint.
type MetricsSnapshot struct {
	Requests      uint64        `json:"requests"`
	Errors        uint64        `json:"errors"`
	MessagesSent  uint64        `json:"messagesSent"`
	Subscriptions int64         `json:"liveSubscriptions"`
	Uptime        time.Duration `json:"uptimeNs"`
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return MetricsSnapshot{
		Requests:      mc.requestCount,
		Errors:        mc.errorCount,
		MessagesSent:  mc.messagesSent,
		Subscriptions: mc.subscriptions,
		Uptime:        time.Since(mc.systemStartTime),
	}
}
