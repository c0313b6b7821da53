package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/proofchain/internal/domain/event"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	events chan event.Event
	err    error
}

func (s *chanSource) Consume(context.Context) (<-chan event.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func TestAuditor_Run(t *testing.T) {
	src := &chanSource{events: make(chan event.Event, 4)}
	src.events <- event.Event{Seq: 1, EventID: "a", Type: event.TypeProjectCreated, ProjectID: 1}
	src.events <- event.Event{Seq: 2, EventID: "b", Type: event.TypeProjectAccepted, ProjectID: 1}
	src.events <- event.Event{Seq: 2, EventID: "b", Type: event.TypeProjectAccepted, ProjectID: 1}
	src.events <- event.Event{Seq: 1, EventID: "c", Type: event.TypeDisputeRaised, ProjectID: 2}
	close(src.events)

	a := New(nil)
	require.NoError(t, a.Run(context.Background(), src))

	require.Equal(t, Report{Received: 4, Duplicates: 1, Reordered: 1}, a.Report())
}

func TestAuditor_RunStopsOnCancel(t *testing.T) {
	src := &chanSource{events: make(chan event.Event)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(nil)
	require.NoError(t, a.Run(ctx, src))
	require.Zero(t, a.Report().Received)
}

func TestAuditor_ConsumeError(t *testing.T) {
	boom := errors.New("channel closed")
	a := New(nil)
	require.ErrorIs(t, a.Run(context.Background(), &chanSource{err: boom}), boom)
}
