package console

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newServer starts a control endpoint that hands every accepted connection
// to handle.
func newServer(t *testing.T, handle func(*websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

// echo answers every text frame with "echo: <text>" until the client leaves.
func echo(conn *websocket.Conn) {
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt == websocket.TextMessage {
			msg = append([]byte("echo: "), msg...)
		}
		if err := conn.WriteMessage(mt, msg); err != nil {
			return
		}
	}
}

func TestReceive_PrintsFramesUntilNormalClose(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ring"}`+"\n"))
		conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		// wait for the client's close reply
		conn.ReadMessage()
	})
	conn := dial(t, url)
	defer conn.Close()

	var out bytes.Buffer
	err := Receive(conn, &out)

	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"ring\"}\n[binary frame, 3 bytes]\n", out.String())
}

func TestReceive_AbnormalClose(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		conn.UnderlyingConn().Close()
	})
	conn := dial(t, url)
	defer conn.Close()

	err := Receive(conn, io.Discard)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection lost")
}

func TestSend(t *testing.T) {
	got := make(chan string, 1)
	url := newServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			got <- string(msg)
		}
	})
	conn := dial(t, url)
	defer conn.Close()

	require.NoError(t, Send(conn, `{"type":"dial","number":"42"}`))

	select {
	case msg := <-got:
		assert.Equal(t, `{"type":"dial","number":"42"}`, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("frame not received")
	}
}

func TestSend_ClosedConnection(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {})
	conn := dial(t, url)
	conn.Close()

	err := Send(conn, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send")
}

func TestRun_RelaysLinesUntilExit(t *testing.T) {
	url := newServer(t, echo)
	out := &syncBuffer{}

	c := New(dial(t, url), Config{
		Stdin:  io.NopCloser(strings.NewReader("hello\n\nexit\n")),
		Stdout: out,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))

	assert.Contains(t, out.String(), "echo: hello")
}

func TestRun_EndsWhenRuntimeHangsUp(t *testing.T) {
	url := newServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("shutting down"))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		conn.ReadMessage()
	})
	out := &syncBuffer{}
	stdinReader, stdinWriter := io.Pipe()
	defer stdinWriter.Close()

	c := New(dial(t, url), Config{Stdin: stdinReader, Stdout: out})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Run(ctx))
	assert.Contains(t, out.String(), "shutting down")
}

func TestRun_Cancelled(t *testing.T) {
	url := newServer(t, echo)
	stdinReader, stdinWriter := io.Pipe()
	defer stdinWriter.Close()

	c := New(dial(t, url), Config{Stdin: stdinReader, Stdout: io.Discard})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("console did not stop after cancellation")
	}
}
