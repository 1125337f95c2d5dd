package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openairwaves/onair-go/internal/services/pubsub"
)

func setupHub(t *testing.T) (*pubsub.PubSub, *httptest.Server) {
	t.Helper()
	events := pubsub.New()
	hub := NewHub(events, 16, func(*http.Request) bool { return true })
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)
	return events, server
}

func dial(t *testing.T, server *httptest.Server, broadcasterID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?broadcasterId=" + broadcasterID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var envelope Envelope
	require.NoError(t, conn.ReadJSON(&envelope))
	return envelope
}

// waitForSubscribers blocks until the hub has registered a client's
// subscriptions, so a publish cannot race the connect handshake.
func waitForSubscribers(t *testing.T, events *pubsub.PubSub, topic pubsub.Topic, count int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for events.SubscriberCount(topic) < count {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d subscribers on %s", count, topic)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionUpdateReachesOwnBroadcasterOnly(t *testing.T) {
	events, server := setupHub(t)

	dj := dial(t, server, "dj-1")
	other := dial(t, server, "dj-2")
	waitForSubscribers(t, events, pubsub.TopicSessionUpdated, 2)

	events.Publish(pubsub.TopicSessionUpdated, "dj-1", map[string]string{"event": "started"})

	envelope := readEnvelope(t, dj)
	assert.Equal(t, pubsub.TopicSessionUpdated, envelope.Topic)
	payload, ok := envelope.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "started", payload["event"])

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray Envelope
	assert.Error(t, other.ReadJSON(&stray), "Expected no message for the other broadcaster")
}

func TestEmergencyReachesEveryClient(t *testing.T) {
	events, server := setupHub(t)

	dj := dial(t, server, "dj-1")
	listener := dial(t, server, "")
	waitForSubscribers(t, events, pubsub.TopicEmergencyBroadcast, 2)

	events.PublishAll(pubsub.TopicEmergencyBroadcast, map[string]string{"title": "weather alert"})

	for _, conn := range []*websocket.Conn{dj, listener} {
		envelope := readEnvelope(t, conn)
		assert.Equal(t, pubsub.TopicEmergencyBroadcast, envelope.Topic)
	}
}

func TestHardwareStatusEnvelope(t *testing.T) {
	events, server := setupHub(t)

	dj := dial(t, server, "dj-1")
	waitForSubscribers(t, events, pubsub.TopicHardwareStatus, 1)

	events.Publish(pubsub.TopicHardwareStatus, "dj-1", map[string]interface{}{
		"control": "crossfader",
		"value":   75,
	})

	envelope := readEnvelope(t, dj)
	assert.Equal(t, pubsub.TopicHardwareStatus, envelope.Topic)

	raw, err := json.Marshal(envelope.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"control":"crossfader","value":75}`, string(raw))
}

func TestDisconnectReleasesSubscriptions(t *testing.T) {
	events, server := setupHub(t)

	conn := dial(t, server, "dj-1")
	waitForSubscribers(t, events, pubsub.TopicSessionUpdated, 1)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for events.SubscriberCount(pubsub.TopicSessionUpdated) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expected subscriptions to be released on disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
