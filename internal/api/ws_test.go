package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carsales/internal/models"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialStream(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, frame string) streamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)

	var m streamMessage
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestStreamRecomputes(t *testing.T) {
	conn := dialStream(t, newTestServer(t, true))

	m := exchange(t, conn, `{"tab":"tab-engine","filters":{"brand":"Bolt"}}`)
	require.Equal(t, "chart", m.Type)
	require.NotNil(t, m.Chart)
	assert.Equal(t, models.KindScatter, m.Chart.Kind)
	assert.Len(t, m.Chart.Scatter, 2)

	m = exchange(t, conn, `{"tab":"tab-engine","filters":{"fuel_types":[]}}`)
	require.Equal(t, "chart", m.Type)
	assert.Equal(t, models.OutcomeInsufficientData, m.Chart.Outcome)
}

func TestStreamErrorsKeepConnection(t *testing.T) {
	conn := dialStream(t, newTestServer(t, true))

	m := exchange(t, conn, `not json`)
	require.Equal(t, "error", m.Type)
	assert.Equal(t, "INVALID_JSON", m.Error.ErrorCode)

	m = exchange(t, conn, `{"filters":{}}`)
	require.Equal(t, "error", m.Type)
	assert.Equal(t, "VALIDATION_FAILED", m.Error.ErrorCode)

	m = exchange(t, conn, `{"tab":"tab-price","filters":{"year_range":[2030,2000]}}`)
	require.Equal(t, "error", m.Type)
	assert.Equal(t, "INVALID_RANGE", m.Error.ErrorCode)

	m = exchange(t, conn, `{"tab":"tab-price"}`)
	assert.Equal(t, "chart", m.Type)
}

func TestStreamUnavailableBeforeLoad(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://dash.example"})
	req := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://dash.example")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
