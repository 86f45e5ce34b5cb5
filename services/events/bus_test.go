package eventsvc

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logsvc "github.com/Kobu-Labs/nowaster-web-sub002/services/logger"
)

type ping struct {
	UserID string `json:"user_id"`
	N      int    `json:"n"`
}

func TestBus(t *testing.T) {
	bus := NewBus(logsvc.NewNopLogger())
	defer bus.Close()

	var got []string
	var failures int
	err := bus.Wire(
		map[string]func(ctx context.Context, payload []byte) error{
			"ping": func(_ context.Context, payload []byte) error {
				got = append(got, string(payload))
				return nil
			},
		},
		map[string]func(ctx context.Context, payload []byte) error{
			"boom": func(context.Context, []byte) error {
				failures++
				return errors.New("boom")
			},
		},
	)
	require.NoError(t, err)

	// Publish waits for the handlers: no synchronisation needed
	require.NoError(t, bus.Publish(context.Background(), "ping", ping{UserID: "u1", N: 1}))
	require.NoError(t, bus.Publish(context.Background(), "ping", ping{UserID: "u1", N: 2}))
	require.NoError(t, bus.Publish(context.Background(), "boom", ping{}))
	require.NoError(t, bus.Publish(context.Background(), "nobody-listens", ping{}))

	assert.Equal(t, []string{`{"user_id":"u1","n":1}`, `{"user_id":"u1","n":2}`}, got)
	assert.Equal(t, 1, failures, "failed events must not be redelivered")
}

func TestBusPublishUnencodable(t *testing.T) {
	bus := NewBus(logsvc.NewNopLogger())
	defer bus.Close()

	assert.Error(t, bus.Publish(context.Background(), "ping", make(chan int)))
}
