package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var received []Event
	dispatcher.Subscribe(EventSignInSuccess, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventSignInSuccess, Email: "alice@example.com"})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "alice@example.com", received[0].Email)
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(EventAccountLocked, func(_ context.Context, _ Event) error {
		called = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventSignInSuccess}))
	assert.False(t, called)
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var order []string
	dispatcher.Subscribe(EventPasswordChanged, func(_ context.Context, _ Event) error {
		order = append(order, "first")
		return errors.New("boom")
	})
	dispatcher.Subscribe(EventPasswordChanged, func(_ context.Context, _ Event) error {
		order = append(order, "second")
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventPasswordChanged}))
	assert.Equal(t, []string{"first", "second"}, order)
}
