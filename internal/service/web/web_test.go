package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"liuproxy_harvester/internal/shared/types"
	"liuproxy_harvester/proxypool/model"
)

type mockProvider struct {
	snap    model.Snapshot
	proxies []string
}

func (m *mockProvider) Snapshot() model.Snapshot     { return m.snap }
func (m *mockProvider) CurrentGoodProxies() []string { return append([]string(nil), m.proxies...) }

func newTestServer(t *testing.T, conf types.WebConf, provider StatusProvider) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ts := httptest.NewServer(NewServer(conf, provider, hub).Routes())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, hub
}

func TestHandleStatus(t *testing.T) {
	provider := &mockProvider{snap: model.Snapshot{RunID: "run-1", Generation: 4, GoodCount: 2, Running: true}}
	ts, _ := newTestServer(t, types.WebConf{}, provider)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var snap model.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if snap.RunID != "run-1" || snap.Generation != 4 || snap.GoodCount != 2 || !snap.Running {
		t.Errorf("snapshot = %+v", snap)
	}

	post, err := http.Post(ts.URL+"/api/status", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", post.StatusCode)
	}
}

func TestHandleProxies(t *testing.T) {
	provider := &mockProvider{proxies: []string{"1.1.1.1:80", "socks5://2.2.2.2:1080"}}
	ts, _ := newTestServer(t, types.WebConf{}, provider)

	t.Run("text", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/proxies")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if string(body) != "1.1.1.1:80\nsocks5://2.2.2.2:1080\n" {
			t.Errorf("body = %q", body)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("json", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/proxies?format=json")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var got ProxiesResponse
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		if got.Count != 2 || len(got.Proxies) != 2 || got.Proxies[1] != "socks5://2.2.2.2:1080" {
			t.Errorf("response = %+v", got)
		}
	})

	t.Run("empty json", func(t *testing.T) {
		provider.proxies = nil
		defer func() { provider.proxies = []string{"1.1.1.1:80", "socks5://2.2.2.2:1080"} }()

		resp, err := http.Get(ts.URL + "/api/proxies?format=json")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), `"proxies":[]`) {
			t.Errorf("body = %s", body)
		}
	})
}

func TestBasicAuth(t *testing.T) {
	provider := &mockProvider{proxies: []string{"1.1.1.1:80"}}
	ts, _ := newTestServer(t, types.WebConf{User: "admin", Password: "secret"}, provider)

	resp, err := http.Get(ts.URL + "/api/proxies")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without credentials = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/proxies", nil)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status with credentials = %d, want 200", resp.StatusCode)
	}

	// status stays public
	resp, err = http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status endpoint = %d, want 200", resp.StatusCode)
	}
}

func TestWebSocketReceivesSnapshots(t *testing.T) {
	ts, hub := newTestServer(t, types.WebConf{}, &mockProvider{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.OnSnapshot(model.Snapshot{Generation: 7, GoodCount: 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string         `json:"type"`
		Data model.Snapshot `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != MessageSnapshot || msg.Data.Generation != 7 || msg.Data.GoodCount != 3 {
		t.Errorf("message = %+v", msg)
	}

	hub.OnGeneration(model.Generation{Number: 8, Promoted: true})
	var gen struct {
		Type string           `json:"type"`
		Data model.Generation `json:"data"`
	}
	if err := conn.ReadJSON(&gen); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if gen.Type != MessageGeneration || gen.Data.Number != 8 || !gen.Data.Promoted {
		t.Errorf("message = %+v", gen)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client not unregistered after close")
	}
}

func TestLoggingListener_LogsAcceptedConnections(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer inner.Close()

	var buf bytes.Buffer
	ll := loggingListener{Listener: inner, log: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	client, err := net.Dial("tcp", inner.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	conn, err := ll.Accept()
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	defer conn.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", buf.String())
	}
	if entry["level"] != "debug" || entry["message"] != "Connection accepted." {
		t.Errorf("log entry = %v", entry)
	}
	if entry["remote_addr"] != client.LocalAddr().String() {
		t.Errorf("remote_addr = %v, want %s", entry["remote_addr"], client.LocalAddr())
	}
}

func TestServerStartDisabled(t *testing.T) {
	s := NewServer(types.WebConf{Port: 0}, &mockProvider{}, NewHub())
	var wg sync.WaitGroup
	if err := s.Start(&wg); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.Addr() != "" {
		t.Errorf("Addr() = %q, want empty", s.Addr())
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	wg.Wait()
}
