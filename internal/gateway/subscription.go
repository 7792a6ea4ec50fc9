package gateway

import (
	"sync"
	"sync/atomic"
)

// Handle cancels a subscription. Release is idempotent.
type Handle interface {
	Release()
}

// Subscription is the Handle returned by the Observe functions.
type Subscription struct {
	id        int64
	path      Path
	deliver   func(raw any)
	released  atomic.Bool
	scheduled atomic.Bool
	once      sync.Once
	onRelease func(*Subscription)
}

// Path returns the observed path.
func (s *Subscription) Path() Path {
	return s.path
}

// Release stops further deliveries. A delivery already running on the loop completes.
func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.released.Store(true)
		if s.onRelease != nil {
			s.onRelease(s)
		}
	})
}

// Released reports whether Release has been called.
func (s *Subscription) Released() bool {
	return s.released.Load()
}

// ReleaseAll releases every handle, skipping nils.
func ReleaseAll(handles []Handle) {
	for _, handle := range handles {
		if handle != nil {
			handle.Release()
		}
	}
}
