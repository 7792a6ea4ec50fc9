package server

import (
	"context"
	"testing"
	"time"
)

func TestRealtimeDispatcherPublishesToSubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "dataset-1")
	defer cleanup()

	dispatcher.Publish(RealtimeMessage{
		DatasetID: "dataset-1",
		EventType: RealtimeEventProducts,
		Payload:   []string{"p-1"},
		Timestamp: time.Now().UTC(),
	})

	select {
	case received := <-stream:
		if received.EventType != RealtimeEventProducts {
			t.Fatalf("expected event type %s, got %s", RealtimeEventProducts, received.EventType)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime message within deadline")
	}
}

func TestRealtimeDispatcherIsolatedByDataset(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	datasetStream, cleanup := dispatcher.Subscribe(ctx, "dataset-2")
	defer cleanup()
	otherStream, otherCleanup := dispatcher.Subscribe(ctx, "dataset-3")
	defer otherCleanup()

	dispatcher.Publish(RealtimeMessage{
		DatasetID: "dataset-3",
		EventType: RealtimeEventShoppingList,
		Timestamp: time.Now().UTC(),
	})

	select {
	case <-datasetStream:
		t.Fatal("did not expect realtime message for unrelated dataset")
	case <-time.After(200 * time.Millisecond):
	}

	select {
	case msg := <-otherStream:
		if msg.DatasetID != "dataset-3" {
			t.Fatalf("expected dataset-3, received %s", msg.DatasetID)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected realtime message for subscribed dataset")
	}
}

func TestRealtimeDispatcherUnsubscribesOnCancel(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	_, cleanup := dispatcher.Subscribe(ctx, "dataset-4")
	if dispatcher.SubscriberCount("dataset-4") != 1 {
		t.Fatalf("expected one subscriber")
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for dispatcher.SubscriberCount("dataset-4") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected subscriber to be removed after cancellation")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cleanup()
}

func TestRealtimeDispatcherDropsWhenSubscriberIsSlow(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "dataset-5")
	defer cleanup()

	for index := 0; index < realtimeBufferSize+5; index++ {
		dispatcher.Publish(RealtimeMessage{DatasetID: "dataset-5", EventType: RealtimeEventProducts})
	}
	if len(stream) != realtimeBufferSize {
		t.Fatalf("expected buffered messages to cap at %d, got %d", realtimeBufferSize, len(stream))
	}
}
