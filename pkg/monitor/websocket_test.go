package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.predicates/pkg/metrics"
	"digital.vasic.predicates/pkg/predicate"
	"digital.vasic.predicates/pkg/value"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(ServerConfig{Registry: predicate.NewBuiltinRegistry()})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
		ts.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func evaluate(t *testing.T, conn *websocket.Conn, req string) Message {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(req)))
	return readUntil(t, conn, MessageResult)
}

func TestServer_Evaluate(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	tests := []struct {
		name   string
		req    string
		passed bool
	}{
		{"string", `{"id":"1","predicate":"is-string","value":"hello"}`, true},
		{"number", `{"id":"2","predicate":"is-number","value":42}`, true},
		{"string is not number", `{"id":"3","predicate":"is-number","value":"42"}`, false},
		{"null", `{"id":"4","predicate":"is-null","value":null}`, true},
		{"missing value is null", `{"id":"5","predicate":"is-null"}`, true},
		{"array", `{"id":"6","predicate":"is-array","value":[1,2]}`, true},
		{"object", `{"id":"7","predicate":"is-object","value":{"a":1}}`, true},
		{"empty array", `{"id":"8","predicate":"is-empty","value":[]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := evaluate(t, conn, tt.req)
			require.NotNil(t, msg.Result)
			assert.Empty(t, msg.Result.Error)
			assert.Equal(t, tt.passed, msg.Result.Passed)
		})
	}
}

func TestServer_EvaluateAs(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	msg := evaluate(t, conn,
		`{"id":"d","predicate":"is-instance-of-date","value":"2024-01-02","as":"date"}`)
	assert.Equal(t, "d", msg.ID)
	assert.True(t, msg.Result.Passed)

	msg = evaluate(t, conn,
		`{"id":"b","predicate":"is-bigint","value":"123456789012345678901234567890","as":"bigint"}`)
	assert.True(t, msg.Result.Passed)

	msg = evaluate(t, conn,
		`{"id":"s","predicate":"is-string","value":42,"as":"string"}`)
	assert.True(t, msg.Result.Passed)
}

func TestServer_UnknownPredicate(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, ts)

	msg := evaluate(t, conn, `{"id":"x","predicate":"is-unicorn","value":1}`)
	require.NotNil(t, msg.Result)
	assert.False(t, msg.Result.Passed)
	assert.Contains(t, msg.Result.Error, "predicate not found: is-unicorn")
	assert.Equal(t, 1, s.Collector().Stats().Misses)
}

func TestServer_InvalidRequest(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readUntil(t, conn, MessageError)
	assert.Contains(t, msg.Error, "invalid request")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"value":1}`)))
	msg = readUntil(t, conn, MessageError)
	assert.Contains(t, msg.Error, "predicate is required")
	assert.NotEmpty(t, msg.ID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"predicate":"is-number","value":"abc","as":"number"}`)))
	msg = readUntil(t, conn, MessageError)
	assert.NotEmpty(t, msg.Error)

	// The connection survives bad requests.
	res := evaluate(t, conn, `{"predicate":"is-boolean","value":true}`)
	assert.True(t, res.Result.Passed)
}

func TestServer_BroadcastsEvents(t *testing.T) {
	s, ts := newTestServer(t)
	a := dial(t, ts)
	b := dial(t, ts)
	require.Eventually(t, func() bool { return s.ClientCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"r","predicate":"is-function","value":1}`)))

	msg := readUntil(t, b, MessageEvent)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "is-function", msg.Event.Predicate)
	assert.Equal(t, EventEvaluated, msg.Event.Type)
	assert.False(t, msg.Event.Passed)

	res := readUntil(t, a, MessageResult)
	assert.Equal(t, "r", res.ID)
}

func TestServer_ClientDisconnect(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, ts)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestServer_HTTPEndpoints(t *testing.T) {
	s, ts := newTestServer(t)
	s.Collector().Observe(predicate.Result{Predicate: "is-string", Passed: true})

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", string(body))
	})

	t.Run("stats", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/stats")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var stats CollectorStats
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
		assert.Equal(t, 1, stats.Total)
		assert.Equal(t, 1, stats.Passed)
	})

	t.Run("predicates", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/predicates")
		require.NoError(t, err)
		defer resp.Body.Close()

		var list []predicate.Predicate
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		assert.Len(t, list, len(predicate.Builtins()))
		assert.Equal(t, "has-length", list[0].Name)
	})

	t.Run("websocket requires upgrade", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/ws")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.NewInMemoryMetrics()
	s := NewServer(ServerConfig{Metrics: m})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Stop(context.Background())

	conn := dial(t, ts)
	evaluate(t, conn, `{"predicate":"is-string","value":"a"}`)
	evaluate(t, conn, `{"predicate":"is-nope","value":"a"}`)

	assert.Equal(t, 1, m.Evaluations("is-string"))
	assert.Equal(t, 1, m.Misses("is-nope"))
}

func TestServer_Serve_StopsOnCancel(t *testing.T) {
	s := NewServer(ServerConfig{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure),
		"unexpected error: %v", err)
	assert.Equal(t, 0, s.ClientCount())
}

func TestServer_Start_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s := NewServer(ServerConfig{Addr: ln.Addr().String()})
	err = s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitor server")
}

func TestServer_Stop_BeforeStart(t *testing.T) {
	s := NewServer(ServerConfig{Addr: fmt.Sprintf("127.0.0.1:%d", 0)})
	assert.NoError(t, s.Stop(context.Background()))
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind value.Kind
		want any
	}{
		{"empty", "", "", nil},
		{"json string", `"hi"`, "", "hi"},
		{"json int", `7`, value.KindAuto, 7},
		{"json bool", `false`, "", false},
		{"string kind keeps text", `"007"`, value.KindString, "007"},
		{"string kind on number", `7`, value.KindString, "7"},
		{"number kind", `"2.5"`, value.KindNumber, 2.5},
		{"null kind", `"anything"`, value.KindNull, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw json.RawMessage
			if tt.raw != "" {
				raw = json.RawMessage(tt.raw)
			}
			got, err := decodeValue(raw, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
