package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

func TestNoopPublisher(t *testing.T) {
	var pub Publisher = &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicIssuesImported, IssuesImported{}); err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestNew_EmptyURLIsNoop(t *testing.T) {
	pub, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := pub.(*NoopPublisher); !ok {
		t.Errorf("expected *NoopPublisher, got %T", pub)
	}
}

func TestNATSPublisher_ImplementsPublisher(t *testing.T) {
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestEnvelope_RoundTrip(t *testing.T) {
	at := time.Date(2026, 2, 11, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	env, err := NewEnvelope(TopicCompletedComputed, CompletedComputed{ProfileID: "p", Weeks: 2, TotalIssues: 7}, at)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.EmittedAt.Location() != time.UTC {
		t.Error("expected UTC timestamp")
	}
	raw, _ := json.Marshal(env)

	got, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	var ev CompletedComputed
	if err := json.Unmarshal(got.Data, &ev); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if got.Topic != TopicCompletedComputed || ev.TotalIssues != 7 || ev.Weeks != 2 {
		t.Errorf("got %+v / %+v", got, ev)
	}

	if _, err := DecodeEnvelope([]byte("{")); err == nil {
		t.Error("expected error for malformed envelope")
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicIssuesImported, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := IssuesImported{ProfileID: "team-a", QueryID: "sprint", Count: 12}
	if err := pub.Publish(context.Background(), TopicIssuesImported, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.conn.Flush()

	select {
	case msg := <-ch:
		if ct := msg.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		env, err := DecodeEnvelope(msg.Data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		var got IssuesImported
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != event {
			t.Errorf("got %+v, want %+v", got, event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_PublishMultipleTopics(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe(TopicAll, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	for _, tc := range []struct {
		topic string
		event any
	}{
		{TopicIssuesImported, IssuesImported{Count: 1}},
		{TopicActiveWorkComputed, ActiveWorkComputed{Epics: 3}},
		{TopicCompletedComputed, CompletedComputed{Weeks: 2}},
		{TopicSettingsUpdated, SettingsUpdated{Settings: model.AppSettings{}.WithDefaults()}},
	} {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.conn.Flush()

	for i := 0; i < 4; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicIssuesImported, IssuesImported{}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	err = pub.Publish(context.Background(), TopicIssuesImported, IssuesImported{})
	if err == nil {
		t.Error("expected error publishing after close")
	}
}
