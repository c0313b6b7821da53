package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := event.Event{
		Seq:       4,
		EventID:   "7d3c1d2e-0b61-4b7e-9a55-3f0c2a1e9b10",
		ProjectID: 2,
		Type:      event.TypeWorkSubmitted,
		Actor:     "bob",
		Details:   map[string]string{event.DetailDeliverableHash: "QmHash"},
		CreatedAt: created,
	}

	msg, err := encodeEvent(evt)
	require.NoError(t, err)
	require.Equal(t, contentType, msg.ContentType)
	require.Equal(t, amqp.Persistent, msg.DeliveryMode)
	require.Equal(t, evt.EventID, msg.MessageId)
	require.Equal(t, "work_submitted", msg.Type)
	require.True(t, created.Equal(msg.Timestamp))

	decoded, err := decodeEvent(msg.Body)
	require.NoError(t, err)
	require.Equal(t, evt.Seq, decoded.Seq)
	require.Equal(t, evt.ProjectID, decoded.ProjectID)
	require.Equal(t, evt.Details, decoded.Details)
	require.True(t, created.Equal(decoded.CreatedAt))
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	_, err := decodeEvent([]byte("not json"))
	require.Error(t, err)

	_, err = decodeEvent([]byte(`{"event_id":"x","type":"project_deleted"}`))
	require.Error(t, err)

	_, err = decodeEvent([]byte(`{"type":"work_approved"}`))
	require.Error(t, err)
}

type recordingAcker struct {
	mu       sync.Mutex
	acked    int
	rejected int
	requeued int
}

func (a *recordingAcker) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *recordingAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeued++
	}
	return nil
}

func (a *recordingAcker) Reject(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected++
	return nil
}

func TestForwardAcksEventsAndRejectsGarbage(t *testing.T) {
	acker := &recordingAcker{}
	msg, err := encodeEvent(event.Event{Seq: 1, EventID: "e1", ProjectID: 1, Type: event.TypeProjectCreated, Actor: "alice"})
	require.NoError(t, err)

	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: acker, Body: []byte("garbage")}
	msgs <- amqp.Delivery{Acknowledger: acker, Body: msg.Body}
	close(msgs)

	out := make(chan event.Event)
	go forward(context.Background(), msgs, out)

	var got []event.Event
	for evt := range out {
		got = append(got, evt)
	}
	require.Len(t, got, 1)
	require.Equal(t, "e1", got[0].EventID)

	acker.mu.Lock()
	defer acker.mu.Unlock()
	require.Equal(t, 1, acker.acked)
	require.Equal(t, 1, acker.rejected)
}

func TestForwardStopsOnCancelWhileIdle(t *testing.T) {
	msgs := make(chan amqp.Delivery)
	out := make(chan event.Event)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		forward(ctx, msgs, out)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forward kept waiting on an open delivery channel after cancel")
	}
	_, open := <-out
	require.False(t, open)
}

func TestForwardRequeuesWhenCancelledMidDelivery(t *testing.T) {
	acker := &recordingAcker{}
	msg, err := encodeEvent(event.Event{Seq: 1, EventID: "e1", ProjectID: 1, Type: event.TypeProjectCreated, Actor: "alice"})
	require.NoError(t, err)

	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Acknowledger: acker, Body: msg.Body}
	out := make(chan event.Event)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		forward(ctx, msgs, out)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(msgs) == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	acker.mu.Lock()
	defer acker.mu.Unlock()
	require.Zero(t, acker.acked)
	require.Equal(t, 1, acker.requeued)
}
