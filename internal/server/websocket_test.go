package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.Server.AllowedOrigins = []string{"https://app.example.com"}
	s, err := New(cfg, nil)
	require.NoError(t, err)

	tests := []struct {
		name           string
		origin         string
		expectedResult bool
	}{
		{"valid localhost origin", "http://localhost:8501", true},
		{"valid 127.0.0.1 origin", "http://127.0.0.1:8501", true},
		{"valid https origin", "https://localhost:8501", true},
		{"request host", "http://widget.internal:9000", true},
		{"dev server in development", "http://localhost:3000", true},
		{"configured origin", "https://app.example.com", true},
		{"invalid external origin", "http://malicious.com", false},
		{"wrong port", "http://localhost:9999", false},
		{"invalid scheme - javascript", "javascript:alert(1)", false},
		{"invalid scheme - file", "file:///etc/passwd", false},
		{"empty origin", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://widget.internal:9000/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.expectedResult, s.checkOrigin(req))
		})
	}
}

func TestCheckOriginProductionDropsDevServers(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Environment = "production"
	s, err := New(cfg, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	assert.False(t, s.checkOrigin(req))
}

func TestViewerRejectedWithoutOrigin(t *testing.T) {
	_, ts := startTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(ts, "/ws"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestViewerDisconnectUnregisters(t *testing.T) {
	s, ts := startTestServer(t, testConfig())
	conn := dialViewer(t, s, ts)
	assert.Equal(t, 1, s.ViewerCount())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return s.ViewerCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastReachesEveryViewer(t *testing.T) {
	s, ts := startTestServer(t, testConfig())
	first := dialViewer(t, s, ts)
	second := dialViewer(t, s, ts)
	require.Eventually(t, func() bool { return s.ViewerCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	s.broadcastMessage(UpdateMessage{Type: "component_update", Content: "<div>Hello, Ada!</div>", Timestamp: time.Now()})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readUpdate(t, conn, "Hello, Ada!")
		assert.Equal(t, "component_update", msg.Type)
	}
}

func TestShutdownClosesViewers(t *testing.T) {
	s, ts := startTestServer(t, testConfig())
	conn := dialViewer(t, s, ts)

	require.NoError(t, s.Shutdown(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	assert.Zero(t, s.ViewerCount())
}

func TestViewerHubRunsWithoutStart(t *testing.T) {
	s, err := New(testConfig(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Shutdown(context.Background())
		ts.Close()
	})

	conn := dialViewer(t, s, ts)
	s.broadcastMessage(UpdateMessage{Type: "component_update", Content: "<div>Hello, Eve!</div>", Timestamp: time.Now()})
	readUpdate(t, conn, "Hello, Eve!")
}

func TestViewerRefusedAfterShutdown(t *testing.T) {
	s, err := New(testConfig(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	require.NoError(t, s.Shutdown(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", ts.URL)
	_, resp, err := websocket.Dial(ctx, wsURL(ts, "/ws"), &websocket.DialOptions{HTTPHeader: header})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
