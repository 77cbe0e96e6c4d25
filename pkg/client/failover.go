package client

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vitalvas/radcli/pkg/log"
)

// ErrServerUnavailable is returned when a server's breaker is open.
var ErrServerUnavailable = errors.New("server marked unavailable")

// FailoverConfig tunes the per-server circuit breakers.
type FailoverConfig struct {
	// Failures is the number of consecutive timeouts or unreachable
	// errors that take a server out of rotation.
	Failures uint32
	// Cooldown is how long a server stays out before one probe request is
	// let through.
	Cooldown time.Duration
}

// Failover keeps one circuit breaker per server. A server that stops
// answering is skipped by Auth and Acct until its cooldown passes.
type Failover struct {
	cfg    FailoverConfig
	logger log.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewFailover creates the breaker set. Zero values take defaults of 3
// failures and 30 seconds.
func NewFailover(cfg FailoverConfig, logger log.Logger) *Failover {
	if cfg.Failures == 0 {
		cfg.Failures = 3
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if logger == nil {
		logger = log.NewDiscardLogger()
	}
	return &Failover{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (f *Failover) breaker(s Server) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := s.String()
	cb, ok := f.breakers[name]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     f.cfg.Cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= f.cfg.Failures
			},
			IsSuccessful: serverAnswered,
			OnStateChange: func(name string, from, to gobreaker.State) {
				f.logger.Warnf("server %s: %s -> %s", name, from, to)
			},
		})
		f.breakers[name] = cb
	}
	return cb
}

// serverAnswered counts every outcome except silence or no route as a
// sign the server is alive.
func serverAnswered(err error) bool {
	switch ResultOf(err) {
	case ResultTimeout, ResultNetworkUnreachable:
		return false
	default:
		return true
	}
}

// Do runs fn through the breaker of s.
func (f *Failover) Do(s Server, fn func() (*Reply, error)) (*Reply, error) {
	if f == nil {
		return fn()
	}

	v, err := f.breaker(s).Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrServerUnavailable
	}
	reply, _ := v.(*Reply)
	return reply, err
}

// Available reports whether requests to s are let through.
func (f *Failover) Available(s Server) bool {
	if f == nil {
		return true
	}
	return f.breaker(s).State() != gobreaker.StateOpen
}
