package notify

import (
	"context"
	"testing"
)

func TestBroadcaster_DeliversToUserOnly(t *testing.T) {
	b := NewBroadcaster(4)
	defer b.Close()

	mine, cancelMine := b.Subscribe("u1")
	defer cancelMine()
	other, cancelOther := b.Subscribe("u2")
	defer cancelOther()

	b.TransactionsChanged(context.Background(), "u1")
	b.GoalsChanged(context.Background(), "u1")

	first := <-mine
	second := <-mine
	if first.Kind != KindTransactions || second.Kind != KindGoals {
		t.Errorf("got kinds %s, %s", first.Kind, second.Kind)
	}
	if first.UID != "u1" {
		t.Errorf("UID = %s, want u1", first.UID)
	}

	select {
	case ev := <-other:
		t.Errorf("other user received %+v", ev)
	default:
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster(1)
	defer b.Close()

	ch, cancel := b.Subscribe("u1")
	defer cancel()

	for i := 0; i < 10; i++ {
		b.GoalsChanged(context.Background(), "u1")
	}

	if len(ch) != 1 {
		t.Errorf("buffered events = %d, want 1", len(ch))
	}
}

func TestBroadcaster_CancelClosesChannel(t *testing.T) {
	b := NewBroadcaster(1)
	ch, cancel := b.Subscribe("u1")

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}

	// Publishing after cancel must not panic.
	b.TransactionsChanged(context.Background(), "u1")
	b.Close()
	b.Close()
}

func TestBroadcaster_SubscribeAfterClose(t *testing.T) {
	b := NewBroadcaster(1)
	b.Close()

	ch, cancel := b.Subscribe("u1")
	defer cancel()
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after Close")
	}
}
