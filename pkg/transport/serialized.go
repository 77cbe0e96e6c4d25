package transport

import "sync"

// Serialized wraps a transport whose sockets share one underlying channel,
// such as a single TLS session, so that only one exchange runs at a time.
// It implements Locker; the asynchronous engine refuses it.
type Serialized struct {
	Transport
	mu sync.Mutex
}

// NewSerialized wraps t.
func NewSerialized(t Transport) *Serialized {
	return &Serialized{Transport: t}
}

func (s *Serialized) Lock() error {
	s.mu.Lock()
	return nil
}

func (s *Serialized) Unlock() error {
	s.mu.Unlock()
	return nil
}

// Held reports whether an exchange currently holds the lock.
func (s *Serialized) Held() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}
