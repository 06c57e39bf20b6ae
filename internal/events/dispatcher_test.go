package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherDeliversInOrderDespiteFailures(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var seen []string

	d.Subscribe(EventLoginFailed, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.SubjectID)
		return errors.New("boom")
	})
	d.Subscribe(EventLoginFailed, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.SubjectID)
		return nil
	})
	d.Subscribe(EventLoginSucceeded, func(context.Context, Event) error {
		seen = append(seen, "unexpected")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventLoginFailed, "u-1", Actor{}, LoginPayload{Email: "a@b.com"}))
	require.NoError(t, err)
	require.Equal(t, []string{"first:u-1", "second:u-1"}, seen)
}

func TestNewEventStampsIdentity(t *testing.T) {
	e := NewEvent(EventTaskDeleted, "t-1", Actor{UserID: "m-1"}, nil)
	require.NotEmpty(t, e.ID)
	require.False(t, e.Timestamp.IsZero())
	require.Equal(t, EventTaskDeleted, e.Type)
}
