package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var errEarly = errors.New("synthetic handler failure")

func TestNewHub(t *testing.T) {
	hub := NewHub(Options{})

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
	if hub.opts.WriteWait != defaultWriteWait {
		t.Errorf("Expected default write wait, got %v", hub.opts.WriteWait)
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(Options{})

	client := &Client{
		hub:  hub,
		id:   "test-client",
		send: make(chan []byte, sendQueueSize),
	}

	hub.registerClient(client)
	if !hub.clients[client] {
		t.Error("Client was not registered")
	}
	if hub.Count() != 1 {
		t.Errorf("Expected count 1, got %d", hub.Count())
	}

	hub.unregisterClient(client)
	if len(hub.clients) != 0 {
		t.Error("Client was not unregistered")
	}
	if hub.Count() != 0 {
		t.Errorf("Expected count 0, got %d", hub.Count())
	}

	// Unregistering twice must not panic on the closed send channel.
	hub.unregisterClient(client)
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(Options{})

	client1 := &Client{hub: hub, id: "c1", send: make(chan []byte, sendQueueSize)}
	client2 := &Client{hub: hub, id: "c2", send: make(chan []byte, sendQueueSize)}
	hub.registerClient(client1)
	hub.registerClient(client2)

	hub.broadcastMessage([]byte(`{"changeCam":{"name":"wraith"}}`))

	for _, client := range []*Client{client1, client2} {
		select {
		case data := <-client.send:
			if string(data) != `{"changeCam":{"name":"wraith"}}` {
				t.Errorf("Client %s received wrong payload: %s", client.id, data)
			}
		default:
			t.Errorf("Client %s received nothing", client.id)
		}
	}
}

func TestBroadcastSurvivesDeadClient(t *testing.T) {
	hub := NewHub(Options{})

	// A client with a full send queue stands in for a dead peer.
	stalled := &Client{hub: hub, id: "stalled", send: make(chan []byte, 1)}
	stalled.send <- []byte("backlog")
	healthy := &Client{hub: hub, id: "healthy", send: make(chan []byte, sendQueueSize)}

	hub.registerClient(stalled)
	hub.registerClient(healthy)

	hub.broadcastMessage([]byte("hello"))

	// The stalled client is dropped, the healthy one still delivered to.
	if hub.clients[stalled] {
		t.Error("Stalled client should have been dropped")
	}
	select {
	case data := <-healthy.send:
		if string(data) != "hello" {
			t.Errorf("Expected 'hello', got %s", data)
		}
	default:
		t.Error("Healthy client received nothing")
	}
}

func TestInboundMessagesReachHandlerInOrder(t *testing.T) {
	hub := NewHub(Options{})

	var mu sync.Mutex
	var received []string
	hub.OnMessage(func(data []byte) error {
		mu.Lock()
		received = append(received, string(data))
		mu.Unlock()
		return nil
	})

	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	for _, msg := range []string{"one", "two", "three"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected 3 messages, got %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"one", "two", "three"} {
		if received[i] != want {
			t.Errorf("Message %d: expected %q, got %q", i, want, received[i])
		}
	}
}

func TestHandlerErrorDoesNotCloseConnection(t *testing.T) {
	hub := NewHub(Options{})

	var mu sync.Mutex
	var received []string
	hub.OnMessage(func(data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(data))
		if string(data) == "bad" {
			return errEarly
		}
		return nil
	})

	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	conn.WriteMessage(websocket.TextMessage, []byte("bad"))
	conn.WriteMessage(websocket.TextMessage, []byte("good"))

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Message after a handler error never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if hub.Count() != 1 {
		t.Errorf("Connection should survive a handler error, count=%d", hub.Count())
	}
}

func TestBroadcastDeliversToLiveConnection(t *testing.T) {
	hub := NewHub(Options{})
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	// Give registration time to land.
	time.Sleep(20 * time.Millisecond)

	hub.Broadcast([]byte(`{"changeCam":{"name":"wraith"}}`))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}
	if string(data) != `{"changeCam":{"name":"wraith"}}` {
		t.Errorf("Unexpected broadcast payload: %s", data)
	}
}

func TestCloseUnregistersClient(t *testing.T) {
	hub := NewHub(Options{})
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if hub.Count() != 1 {
		t.Fatalf("Expected 1 client, got %d", hub.Count())
	}

	conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client was not unregistered after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
