package eventbus

import (
	"testing"
	"time"

	"github.com/dupeforge/dupeforge/models"
)

func TestSubscribeFiltersByTopic(t *testing.T) {
	b := New()
	sub := b.Subscribe(Topics(models.EventScanCompleted))
	defer sub.Unsubscribe()

	b.Publish(models.Event{Type: models.EventScanProgress})
	b.Publish(models.Event{Type: models.EventScanCompleted, ScanID: "scan-1"})

	select {
	case evt := <-sub.Events:
		if evt.Type != models.EventScanCompleted || evt.ScanID != "scan-1" {
			t.Fatalf("got unexpected event %+v", evt)
		}
	default:
		t.Fatal("expected the matching event to be buffered")
	}

	select {
	case evt := <-sub.Events:
		t.Fatalf("unexpected second event %+v; scan:progress should have been filtered out", evt)
	default:
	}
}

func TestAllTopicsReceivesEverything(t *testing.T) {
	b := New()
	sub := b.Subscribe(AllTopics)
	defer sub.Unsubscribe()

	b.Publish(models.Event{Type: models.EventJobCreated})
	b.Publish(models.Event{Type: models.EventScanCompleted})

	for i := 0; i < 2; i++ {
		select {
		case <-sub.Events:
		default:
			t.Fatalf("expected event %d to be buffered", i)
		}
	}
}

func TestPublishDropsOldestWhenBufferFull(t *testing.T) {
	b := New()
	sub := b.Subscribe(AllTopics)
	defer sub.Unsubscribe()

	for i := 0; i < DefaultBufferSize+5; i++ {
		b.Publish(models.Event{Type: models.EventJobCreated, Timestamp: time.Unix(int64(i), 0)})
	}

	if sub.Dropped() != 5 {
		t.Errorf("Dropped() = %d, want 5", sub.Dropped())
	}

	first := <-sub.Events
	if first.Timestamp.Unix() != 5 {
		t.Errorf("expected the oldest 5 events to have been discarded, got timestamp %v", first.Timestamp)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	sub := b.Subscribe(AllTopics)
	sub.Unsubscribe()

	b.Publish(models.Event{Type: models.EventJobCreated})

	if _, ok := <-sub.Events; ok {
		t.Fatal("expected the channel to be closed after Unsubscribe")
	}
}
