package server

import (
	"context"
	"sync"
	"time"
)

const (
	RealtimeEventProducts     = "products"
	RealtimeEventShoppingList = "shopping_list"
	realtimeEventHeartbeat    = "heartbeat"
	realtimeBufferSize        = 16
)

// RealtimeMessage is one push to the members of a dataset. Payload is JSON-encodable.
type RealtimeMessage struct {
	DatasetID string    `json:"-"`
	EventType string    `json:"event"`
	Payload   any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RealtimeDispatcher fans messages out to the stream connections of a dataset. A slow
// subscriber drops messages rather than blocking the publisher.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  realtimeBufferSize,
	}
}

// Subscribe registers a stream for datasetID until ctx ends or cleanup is called.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, datasetID string) (<-chan RealtimeMessage, func()) {
	if datasetID == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(datasetID, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(datasetID, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers message to every subscriber of its dataset without blocking.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.DatasetID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.DatasetID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*realtimeSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports the open streams for datasetID.
func (d *RealtimeDispatcher) SubscriberCount(datasetID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[datasetID])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(datasetID string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[datasetID]; !ok {
		d.subscribers[datasetID] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[datasetID][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(datasetID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[datasetID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, datasetID)
		}
	}
	d.mu.Unlock()
}
