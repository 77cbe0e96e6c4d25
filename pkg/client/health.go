package client

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HealthChecker polls servers with Status-Server requests and keeps the
// last outcome for each.
type HealthChecker struct {
	client  *Client
	servers ServerList

	mu     sync.RWMutex
	status map[string]HealthStatus
}

// NewHealthChecker creates a health checker for servers.
func NewHealthChecker(client *Client, servers ServerList) *HealthChecker {
	return &HealthChecker{
		client:  client,
		servers: servers,
		status:  make(map[string]HealthStatus, len(servers)),
	}
}

// Run checks every server each interval until ctx is done.
func (h *HealthChecker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Check polls every server once, one after another.
func (h *HealthChecker) Check(ctx context.Context) {
	for _, s := range h.servers {
		h.checkServer(ctx, s)
	}
}

func (h *HealthChecker) checkServer(ctx context.Context, s Server) {
	start := h.client.now()
	reply, err := h.client.Status(ctx, s)
	rtt := h.client.now().Sub(start)

	result := ResultOf(err)
	if err == nil {
		result = reply.Result
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	name := s.String()
	st := h.status[name]
	st.Address = name
	st.LastCheck = start
	st.LastResult = result

	if result == ResultOK {
		if !st.Healthy && st.FailureCount > 0 {
			h.client.logger.Infof("Server %s marked as healthy", name)
		}
		st.Healthy = true
		st.FailureCount = 0
		st.RTT = rtt
	} else {
		if st.Healthy {
			h.client.logger.Warnf("Server %s marked as unhealthy: %s", name, result)
		}
		st.Healthy = false
		st.FailureCount++
	}
	h.status[name] = st
}

// Status returns the health of every checked server by address.
func (h *HealthChecker) Status() map[string]HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]HealthStatus, len(h.status))
	for k, v := range h.status {
		out[k] = v
	}
	return out
}

// HealthStatus is the outcome of the latest checks of one server.
type HealthStatus struct {
	Address      string
	Healthy      bool
	LastCheck    time.Time
	LastResult   Result
	FailureCount int64
	RTT          time.Duration
}

func (h HealthStatus) String() string {
	status := "unhealthy"
	if h.Healthy {
		status = "healthy"
	}

	return fmt.Sprintf("Server %s is %s (failures: %d, last result: %s, rtt: %s)",
		h.Address, status, h.FailureCount, h.LastResult, h.RTT)
}
