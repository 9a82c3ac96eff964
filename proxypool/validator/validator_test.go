package validator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"liuproxy_harvester/internal/shared/request"
)

// mockDoer answers with a status per URL and records every request.
type mockDoer struct {
	mu       sync.Mutex
	statuses map[string]int
	panicOn  string
	requests []request.Request
}

func (m *mockDoer) Do(ctx context.Context, req request.Request) *request.Response {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if req.URL == m.panicOn {
		panic("transport exploded")
	}
	status, ok := m.statuses[req.URL]
	if !ok {
		return &request.Response{URL: req.URL, Err: context.DeadlineExceeded}
	}
	return &request.Response{URL: req.URL, StatusCode: status}
}

func (m *mockDoer) urls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.requests))
	for _, r := range m.requests {
		out = append(out, r.URL)
	}
	return out
}

func TestJudges_ReturnsCopyInOrder(t *testing.T) {
	judges := []string{"http://j1", "http://j2"}
	c := New(&mockDoer{}, judges)
	judges[0] = "http://changed"

	got := c.Judges()
	if len(got) != 2 || got[0] != "http://j1" || got[1] != "http://j2" {
		t.Fatalf("Unexpected judges: %v", got)
	}
	got[1] = "http://changed"
	if c.Judges()[1] != "http://j2" {
		t.Error("Judges() must return a copy")
	}
}

func TestCheck_FirstJudgeOK(t *testing.T) {
	doer := &mockDoer{statuses: map[string]int{"http://j1": 200, "http://j2": 200}}
	c := New(doer, []string{"http://j1", "http://j2"})

	if !c.Check(context.Background(), "1.1.1.1:80") {
		t.Fatal("Expected proxy to be alive")
	}
	if urls := doer.urls(); len(urls) != 1 {
		t.Errorf("Expected a single probe, got %v", urls)
	}
	if doer.requests[0].Proxy != "1.1.1.1:80" || !doer.requests[0].NoRedirect {
		t.Errorf("Probe must go through the candidate without following redirects: %+v", doer.requests[0])
	}
}

func TestCheck_FallsThroughJudges(t *testing.T) {
	doer := &mockDoer{statuses: map[string]int{"http://j1": 500, "http://j3": 200}}
	c := New(doer, []string{"http://j1", "http://j2", "http://j3"})

	if !c.Check(context.Background(), "1.1.1.1:80") {
		t.Fatal("Expected the third judge to mark the proxy alive")
	}
	if urls := doer.urls(); len(urls) != 3 {
		t.Errorf("Expected all three judges to be probed, got %v", urls)
	}
}

func TestCheck_AllJudgesFail(t *testing.T) {
	doer := &mockDoer{statuses: map[string]int{"http://j1": 403}}
	c := New(doer, []string{"http://j1", "http://j2"})

	if c.Check(context.Background(), "1.1.1.1:80") {
		t.Fatal("Expected proxy to be dead")
	}
}

func TestCheck_SecondCheck(t *testing.T) {
	t.Run("passes when second check answers 200", func(t *testing.T) {
		doer := &mockDoer{statuses: map[string]int{"http://j1": 200, "https://site": 200}}
		c := New(doer, []string{"http://j1"}, WithSecondCheck("https://site"), WithTimeouts(time.Second, 2*time.Second))

		if !c.Check(context.Background(), "1.1.1.1:80") {
			t.Fatal("Expected proxy to be alive")
		}
		if got := doer.requests[1].Timeout; got != 2*time.Second {
			t.Errorf("Expected second check timeout 2s, got %v", got)
		}
	})

	t.Run("fails when second check fails for every judge", func(t *testing.T) {
		doer := &mockDoer{statuses: map[string]int{"http://j1": 200, "http://j2": 200, "https://site": 502}}
		c := New(doer, []string{"http://j1", "http://j2"}, WithSecondCheck("https://site"))

		if c.Check(context.Background(), "1.1.1.1:80") {
			t.Fatal("Expected proxy to be dead")
		}
		want := []string{"http://j1", "https://site", "http://j2", "https://site"}
		if got := doer.urls(); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("Unexpected probe order: %v", got)
		}
	})
}

func TestCheck_PanicIsAbsorbed(t *testing.T) {
	doer := &mockDoer{statuses: map[string]int{}, panicOn: "http://j1"}
	c := New(doer, []string{"http://j1"})

	if c.Check(context.Background(), "1.1.1.1:80") {
		t.Fatal("A panicking probe must yield false")
	}
}

func TestCheck_CancelledContext(t *testing.T) {
	doer := &mockDoer{statuses: map[string]int{"http://j1": 200}}
	c := New(doer, []string{"http://j1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if c.Check(ctx, "1.1.1.1:80") {
		t.Fatal("Expected false for a cancelled context")
	}
	if len(doer.urls()) != 0 {
		t.Error("No probe should be sent after cancellation")
	}
}

func TestCheck_ThroughRealTransport(t *testing.T) {
	fakeProxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Host == "judge.invalid" {
			w.Write([]byte("REMOTE_ADDR = 1.2.3.4"))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer fakeProxy.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadAddr := strings.TrimPrefix(dead.URL, "http://")
	dead.Close()

	c := New(request.New(), []string{"http://judge.invalid/env"}, WithTimeouts(time.Second, time.Second))

	if !c.Check(context.Background(), strings.TrimPrefix(fakeProxy.URL, "http://")) {
		t.Error("Expected the working proxy to pass")
	}
	if c.Check(context.Background(), deadAddr) {
		t.Error("Expected the closed proxy to fail")
	}
}
