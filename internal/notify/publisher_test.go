package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPublisher_PushesIntoHub(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	hub.Register(3, conn)

	err := LocalPublisher{Hub: hub}.Publish(context.Background(), 3, sampleNotification())

	require.NoError(t, err)
	assert.Len(t, conn.received(), 1)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload, err := encodeEnvelope(3, sampleNotification())
	require.NoError(t, err)

	userID, n, err := decodeEnvelope(string(payload))
	require.NoError(t, err)

	assert.Equal(t, uint(3), userID)
	assert.Equal(t, uint(3), n.UserID)
	assert.Equal(t, "Form approved", n.Title)
}

func TestDecodeEnvelope_RejectsMissingUser(t *testing.T) {
	_, _, err := decodeEnvelope(`{"notification":{"id":1}}`)
	assert.Error(t, err)

	_, _, err = decodeEnvelope(`not json`)
	assert.Error(t, err)
}

func TestRedisRelay_DeliverPushesLocally(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	hub.Register(5, conn)

	relay, err := NewRedisRelay("redis://localhost:6379/0", "test", hub)
	require.NoError(t, err)
	defer relay.Close()

	payload, err := encodeEnvelope(5, sampleNotification())
	require.NoError(t, err)

	relay.deliver(string(payload))
	relay.deliver("garbage")

	assert.Len(t, conn.received(), 1)
}

func TestNewRedisRelay_BadURL(t *testing.T) {
	_, err := NewRedisRelay("://nope", "test", NewHub())
	assert.Error(t, err)
}
