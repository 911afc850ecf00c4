package eventbus

import "testing"

func TestPublishFansOut(t *testing.T) {
	t.Parallel()
	b := New()
	a, unA := b.Subscribe(1)
	c, unC := b.Subscribe(1)
	defer unA()
	defer unC()

	b.Publish(Event{Type: BroadcastFinished, Data: 3})
	for _, ch := range []<-chan Event{a, c} {
		e := <-ch
		if e.Type != BroadcastFinished || e.Data != 3 || e.Time.IsZero() {
			t.Fatalf("unexpected event %+v", e)
		}
	}
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	b.Publish(Event{Type: SchedulerStarted})
	b.Publish(Event{Type: SchedulerStopped})
	if e := <-ch; e.Type != SchedulerStarted {
		t.Fatalf("got %q", e.Type)
	}
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	b.Publish(Event{Type: ConfigReloaded})
}
