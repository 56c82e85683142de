package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func wsServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		if handler != nil {
			handler(conn)
		}
	}))
}

// connectClient dials a client against the test server with pings off.
func connectClient(t *testing.T, server *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig("ws"+strings.TrimPrefix(server.URL, "http"), "test")
	cfg.PingInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	return client
}

func TestConnect(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	client := connectClient(t, server, nil)

	if client.State() != StateConnected {
		t.Errorf("state = %v, want %v", client.State(), StateConnected)
	}
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
}

func TestConnectRefused(t *testing.T) {
	cfg := DefaultConfig("ws://localhost:59999", "test")
	cfg.PingInterval = 0

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err == nil {
		t.Fatal("Connect succeeded against a closed port")
	}
	if client.State() != StateDisconnected {
		t.Errorf("state = %v, want %v", client.State(), StateDisconnected)
	}
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(Config{Name: "test"}); err == nil {
		t.Fatal("New accepted an empty URL")
	}
}

func TestSendJSON(t *testing.T) {
	var (
		mu       sync.Mutex
		received []byte
	)

	server := wsServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			return
		}
		mu.Lock()
		received = data
		mu.Unlock()
	})
	defer server.Close()

	client := connectClient(t, server, nil)

	ctx := context.Background()
	sub := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{"ethusdt@bookTicker"},
		"id":     1,
	}
	if err := client.SendJSON(ctx, sub); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	var parsed map[string]interface{}
	if err := json.Unmarshal(received, &parsed); err != nil {
		t.Fatalf("server received invalid JSON: %v (%s)", err, received)
	}
	if parsed["method"] != "SUBSCRIBE" {
		t.Errorf("method = %v, want SUBSCRIBE", parsed["method"])
	}
}

func TestOnMessage(t *testing.T) {
	tick := []byte(`{"s":"ETHUSDT","b":"1999.90","a":"2000.10"}`)

	server := wsServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
		conn.Write(ctx, websocket.MessageText, tick)
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	cfg := DefaultConfig("ws"+strings.TrimPrefix(server.URL, "http"), "test")
	cfg.PingInterval = 0
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	got := make(chan []byte, 1)
	client.OnMessage(func(ctx context.Context, msg []byte) {
		got <- msg
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := client.Send(ctx, []byte("go")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-got:
		if string(msg) != string(tick) {
			t.Errorf("message = %s, want %s", msg, tick)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestStateTransitions(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	cfg := DefaultConfig("ws"+strings.TrimPrefix(server.URL, "http"), "test")
	cfg.PingInterval = 0
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	var (
		mu     sync.Mutex
		states []State
	)
	client.OnStateChange(func(state State, err error) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != StateConnecting || states[1] != StateConnected {
		t.Fatalf("states = %v, want [connecting connected ...]", states)
	}
}

func TestCloseIdempotent(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client := connectClient(t, server, nil)

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.State() != StateClosed {
		t.Errorf("state = %v, want %v", client.State(), StateClosed)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestConcurrentSend(t *testing.T) {
	var msgCount atomic.Int32

	server := wsServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
			msgCount.Add(1)
		}
	})
	defer server.Close()

	client := connectClient(t, server, nil)

	const goroutines = 10
	const perGoroutine = 5

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if err := client.SendJSON(ctx, map[string]int{"worker": id, "seq": j}); err != nil {
					t.Errorf("SendJSON: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	time.Sleep(200 * time.Millisecond)
	if got := msgCount.Load(); got != goroutines*perGoroutine {
		t.Errorf("server received %d messages, want %d", got, goroutines*perGoroutine)
	}
}

func TestReadLimitDropsConnection(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn) {
		oversized := make([]byte, 1<<20)
		for i := range oversized {
			oversized[i] = 'A'
		}
		conn.Write(context.Background(), websocket.MessageText, oversized)
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	cfg := DefaultConfig("ws"+strings.TrimPrefix(server.URL, "http"), "test")
	cfg.PingInterval = 0
	cfg.MaxMessageSize = 100
	cfg.InitialBackoff = 50 * time.Millisecond

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	dropped := make(chan struct{}, 1)
	client.OnStateChange(func(state State, err error) {
		if state == StateReconnecting {
			select {
			case dropped <- struct{}{}:
			default:
			}
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("oversized message did not drop the connection")
	}
}
