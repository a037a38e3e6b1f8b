package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/hiring-pipeline/internal/types"
)

type fakeChannel struct {
	declared   string
	kind       string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared, f.kind = name, kind
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewAMQPPublisher(ch, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultExchange, ch.declared)
	assert.Equal(t, amqp.ExchangeFanout, ch.kind)

	ev := types.ChangeEvent{EntityKind: types.EntityApplication, EntityID: "x", ApplicationID: uuid.New(), OccurredAt: time.Now().UTC()}
	p.Publish(context.Background(), ev)

	require.Len(t, ch.published, 1)
	assert.Equal(t, DefaultExchange+"/application", ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	var got types.ChangeEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &got))
	assert.Equal(t, ev.ApplicationID, got.ApplicationID)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisher_PublishErrorIsSwallowed(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewAMQPPublisher(ch, "custom", nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), types.ChangeEvent{EntityKind: types.EntityInterview})
	})
}

func TestAMQPPublisher_DecodeSkipsOwnEvents(t *testing.T) {
	p, err := NewAMQPPublisher(&fakeChannel{}, "", nil)
	require.NoError(t, err)

	body, _ := json.Marshal(types.ChangeEvent{EntityKind: types.EntityHiringDecision, EntityID: "d1"})

	_, ok := p.decode(amqp.Delivery{AppId: p.origin, Body: body})
	assert.False(t, ok)

	ev, ok := p.decode(amqp.Delivery{AppId: "other-instance", Body: body})
	require.True(t, ok)
	assert.Equal(t, "d1", ev.EntityID)

	_, ok = p.decode(amqp.Delivery{AppId: "other-instance", Body: []byte("not json")})
	assert.False(t, ok)
}

func TestAMQPPublisher_RelayNeedsConnection(t *testing.T) {
	p, err := NewAMQPPublisher(&fakeChannel{}, "", nil)
	require.NoError(t, err)
	assert.Error(t, p.Relay(context.Background(), NewHub(1)))
}

func TestAMQPPublisher_ForwardRepublishesThenReportsClosedChannel(t *testing.T) {
	p, err := NewAMQPPublisher(&fakeChannel{}, "", nil)
	require.NoError(t, err)
	hub := NewHub(4)
	sub := hub.Subscribe(nil)
	defer sub.Close()

	body, _ := json.Marshal(types.ChangeEvent{EntityKind: types.EntityApplication, EntityID: "a1"})
	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{AppId: "other-instance", Body: body}
	msgs <- amqp.Delivery{AppId: p.origin, Body: body}
	close(msgs)

	err = p.forward(context.Background(), msgs, hub)
	assert.ErrorIs(t, err, ErrRelayClosed)

	select {
	case ev := <-sub.C:
		assert.Equal(t, "a1", ev.EntityID)
	default:
		t.Fatal("expected the foreign event to be republished")
	}
	select {
	case ev := <-sub.C:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestAMQPPublisher_ForwardStopsOnContext(t *testing.T) {
	p, err := NewAMQPPublisher(&fakeChannel{}, "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.forward(ctx, make(chan amqp.Delivery), NewHub(1)))
}
