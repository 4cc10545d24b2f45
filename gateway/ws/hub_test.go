package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonwadsworth/aws-account-name/metric"
	"github.com/jasonwadsworth/aws-account-name/pipeline/console"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(Config{Registry: metric.NewMetricsRegistry()})
	require.NoError(t, hub.Initialize())
	require.NoError(t, hub.Start(context.Background()))
	t.Cleanup(func() { _ = hub.Stop(time.Second) })

	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestBroadcastsDisplayUpdates(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	// Give the hub a moment to register the subscriber.
	time.Sleep(20 * time.Millisecond)

	update := console.DisplayUpdate{
		AccountID:   "111122223333",
		AccountName: "Production",
		URL:         "https://console.example.com/home",
		At:          time.Now(),
	}
	require.NoError(t, hub.Render(update))

	env := readEnvelope(t, conn)
	assert.Equal(t, "display_update", env.Type)
	assert.NotZero(t, env.ID)

	var got console.DisplayUpdate
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, "111122223333", got.AccountID)
	assert.Equal(t, "Production", got.AccountName)
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, hub.Render(console.DisplayUpdate{AccountID: "111122223333", AccountName: "Production"}))

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		assert.Equal(t, "display_update", env.Type)
	}
}

func TestFrameIDsIncrease(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, hub.Render(console.DisplayUpdate{AccountID: "111122223333", AccountName: "a"}))
	require.NoError(t, hub.Render(console.DisplayUpdate{AccountID: "111122223333", AccountName: "b"}))

	first := readEnvelope(t, conn)
	second := readEnvelope(t, conn)
	assert.Greater(t, second.ID, first.ID)
}

func TestRenderWithoutSubscribers(t *testing.T) {
	hub, _ := startHub(t)
	assert.NoError(t, hub.Render(console.DisplayUpdate{AccountID: "111122223333", AccountName: "Production"}))
}

func TestDisconnectedClientIsDropped(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, conn.Close())

	// Two renders: the first discovers the dead connection and drops it.
	_ = hub.Render(console.DisplayUpdate{AccountID: "111122223333", AccountName: "a"})
	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, hub.Render(console.DisplayUpdate{AccountID: "111122223333", AccountName: "b"}))
	assert.Empty(t, hub.snapshot())
}

func TestStopIsIdempotent(t *testing.T) {
	hub := NewHub(Config{})
	require.NoError(t, hub.Initialize())
	require.NoError(t, hub.Start(context.Background()))

	assert.NoError(t, hub.Stop(time.Second))
	assert.NoError(t, hub.Stop(time.Second))
}

var _ console.DisplayRenderer = (*Hub)(nil)
