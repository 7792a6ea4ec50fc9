package gateway

import "sync"

// dispatcher indexes live subscriptions by the root segment of their path so a write only
// inspects subscriptions that can overlap it.
type dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*Subscription
	nextID      int64
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		subscribers: make(map[string]map[int64]*Subscription),
	}
}

func (d *dispatcher) register(subscription *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	subscription.id = d.nextID
	root := subscription.path.Root()
	if _, ok := d.subscribers[root]; !ok {
		d.subscribers[root] = make(map[int64]*Subscription)
	}
	d.subscribers[root][subscription.id] = subscription
}

func (d *dispatcher) unregister(subscription *Subscription) {
	d.mu.Lock()
	root := subscription.path.Root()
	subscribers := d.subscribers[root]
	if subscribers != nil {
		delete(subscribers, subscription.id)
		if len(subscribers) == 0 {
			delete(d.subscribers, root)
		}
	}
	d.mu.Unlock()
}

// affected returns the live subscriptions whose observed value a write at any of paths may change.
func (d *dispatcher) affected(paths []Path) []*Subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[int64]struct{})
	var matches []*Subscription
	for _, path := range paths {
		for id, subscription := range d.subscribers[path.Root()] {
			if _, ok := seen[id]; ok {
				continue
			}
			if subscription.path.Overlaps(path) {
				seen[id] = struct{}{}
				matches = append(matches, subscription)
			}
		}
	}
	return matches
}

func (d *dispatcher) count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total := 0
	for _, subscribers := range d.subscribers {
		total += len(subscribers)
	}
	return total
}
