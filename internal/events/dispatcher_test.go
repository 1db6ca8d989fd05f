package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	var calls []string
	d.Subscribe(EventNoticeConfirmed, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventNoticeConfirmed, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{ID: "evt-1", Type: EventNoticeConfirmed})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}

func TestMutationEventsAreDistinct(t *testing.T) {
	seen := map[EventType]bool{}
	for _, e := range MutationEvents() {
		assert.False(t, seen[e], e)
		seen[e] = true
	}
	assert.Len(t, seen, 9)
}
