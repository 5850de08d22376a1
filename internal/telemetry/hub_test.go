package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/gazecursor/internal/geom"
	"github.com/dudu/gazecursor/internal/tracker"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHubStreamsEvents(t *testing.T) {
	hub := NewHub(true, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(tracker.Event{Frame: 7, FaceDetected: true, Cursor: geom.ScreenPoint{X: 960, Y: 540}, Click: true, Phase: "idle"})

	var msg Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, hub.Session(), msg.Session)
	assert.Equal(t, int64(7), msg.Event.Frame)
	assert.True(t, msg.Event.Click)
	assert.Equal(t, geom.ScreenPoint{X: 960, Y: 540}, msg.Event.Cursor)
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub := NewHub(true, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(false, nil)
	for i := 0; i < 1000; i++ {
		hub.Publish(tracker.Event{Frame: int64(i)})
	}
	assert.NotEmpty(t, hub.Session())
	assert.NoError(t, hub.Close())
}

func TestStartAndClose(t *testing.T) {
	hub := NewHub(true, nil)
	require.NoError(t, hub.Start("127.0.0.1:0"))
	assert.NoError(t, hub.Close())
}
