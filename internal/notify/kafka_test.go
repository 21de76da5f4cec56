package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/rollcall/internal/notify"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

func TestNewKafkaPublisher_RequiresBrokersAndTopic(t *testing.T) {
	_, err := notify.NewKafkaPublisher(nil, "rollcall.punches", zerolog.Nop())
	assert.Error(t, err)

	_, err = notify.NewKafkaPublisher([]string{"127.0.0.1:9092"}, "", zerolog.Nop())
	assert.Error(t, err)
}

// Publish only enqueues, so an unreachable broker never fails a punch.
func TestKafkaPublisher_PublishDoesNotBlockOnBroker(t *testing.T) {
	p, err := notify.NewKafkaPublisher([]string{"127.0.0.1:1"}, "rollcall.punches", zerolog.Nop())
	require.NoError(t, err)

	start := time.Now()
	err = p.Publish(context.Background(), types.PunchEvent{Type: types.ActionPunchIn, UserID: "u1", Timestamp: start})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	p.Close(ctx)
}
