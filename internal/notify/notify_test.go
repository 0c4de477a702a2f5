package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/enum"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_RunsAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	var calls []string

	h := Chain(
		func(ctx context.Context, ev domain.OrderEvent) error { calls = append(calls, "a"); return errA },
		nil,
		func(ctx context.Context, ev domain.OrderEvent) error { calls = append(calls, "b"); return nil },
		func(ctx context.Context, ev domain.OrderEvent) error { calls = append(calls, "c"); return errC },
	)

	err := h(context.Background(), domain.OrderEvent{Type: enum.EventOrderCompleted})
	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
}

func TestChain_Empty(t *testing.T) {
	assert.NoError(t, Chain()(context.Background(), domain.OrderEvent{}))
}

func TestOnly(t *testing.T) {
	fired := 0
	h := Only(func(ctx context.Context, ev domain.OrderEvent) error { fired++; return nil }, enum.EventOrderOutForDelivery)

	require.NoError(t, h(context.Background(), domain.OrderEvent{Type: enum.EventOrderCreated}))
	require.NoError(t, h(context.Background(), domain.OrderEvent{Type: enum.EventOrderOutForDelivery}))
	assert.Equal(t, 1, fired)
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	p := NewPublisher(ch, "bestdog.orders", log)

	ev := domain.OrderEvent{
		Type:  enum.EventOrderOutForDelivery,
		Order: domain.Order{ID: uuid.New(), Number: 4, Status: domain.StatusOutForDelivery},
		At:    time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), ev))

	assert.Equal(t, "bestdog.orders", ch.exchange)
	assert.Equal(t, "order.out_for_delivery", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, ev.Order.ID.String(), ch.msg.MessageId)

	var got struct {
		Pattern string            `json:"pattern"`
		Data    domain.OrderEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, ev.Type, got.Pattern)
	assert.Equal(t, 4, got.Data.Order.Number)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "order event published", hook.LastEntry().Message)
	assert.NoError(t, p.Close())
}

func TestPublisher_Errors(t *testing.T) {
	brokerDown := errors.New("channel closed")
	log, _ := test.NewNullLogger()
	p := NewPublisher(&fakeChannel{err: brokerDown}, "x", log)

	err := p.Publish(context.Background(), domain.OrderEvent{Type: enum.EventOrderCreated})
	assert.ErrorIs(t, err, brokerDown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.Publish(ctx, domain.OrderEvent{Type: enum.EventOrderCreated})
	assert.ErrorIs(t, err, context.Canceled)
}
