package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/config"
	"github.com/vovakirdan/figaro/internal/core"
	"github.com/vovakirdan/figaro/internal/model"
	"github.com/vovakirdan/figaro/internal/store"
	"github.com/vovakirdan/figaro/internal/store/sqlite"
	"github.com/vovakirdan/figaro/internal/view"
)

// fakeSubmitter records submitted changes and returns err.
type fakeSubmitter struct {
	mu      sync.Mutex
	err     error
	changes []model.StatusChange
}

func (f *fakeSubmitter) Submit(_ context.Context, change model.StatusChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, change)
	return f.err
}

func (f *fakeSubmitter) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSubmitter) submitted() []model.StatusChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.StatusChange(nil), f.changes...)
}

type testEnv struct {
	ts        *httptest.Server
	hub       *core.Hub
	submitter *fakeSubmitter
	statuses  store.StatusStore
}

func testConfig() config.Config {
	return config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		Title:             "Test board",
		StatusRateLimit:   60,
	}
}

// startTestServer runs a hub and serves the router from an httptest server.
func startTestServer(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	hub := core.NewHub(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	renderer, err := view.New()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	disabledLogger := zerolog.Nop()
	submitter := &fakeSubmitter{}
	server := NewServer(Deps{Hub: hub, Renderer: renderer, Status: submitter, Statuses: st}, &cfg, &disabledLogger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	// Shutdown runs the server's shutdown hooks, stopping the rate limiter.
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	return &testEnv{ts: ts, hub: hub, submitter: submitter, statuses: st}
}

// publish pushes a frame and waits until the hub has made it the latest one.
func (e *testEnv) publish(t *testing.T, html string) {
	t.Helper()

	if err := e.hub.Publish(context.Background(), core.Frame{HTML: html, Channels: 1, ReceivedAt: time.Now()}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if latest := e.hub.Latest(); latest != nil && latest.HTML == html {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("frame was not published")
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + pathWS
}

var errUpstream = errors.New("upstream refused")
