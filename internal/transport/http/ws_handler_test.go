package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/figaro/internal/core"
	"github.com/vovakirdan/figaro/internal/proto"
)

func readOutbound(ctx context.Context, t *testing.T, conn *websocket.Conn) proto.Outbound {
	t.Helper()

	var out proto.Outbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

func TestWebSocketReceivesLatestFrameOnConnect(t *testing.T) {
	env := startTestServer(t, testConfig())
	env.publish(t, "<p>first</p>")

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn, _, err := websocket.Dial(ctx, env.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeFrame || out.HTML != "<p>first</p>" {
		t.Fatalf("unexpected first outbound: %+v", out)
	}
}

func TestWebSocketBroadcastsToEveryBrowser(t *testing.T) {
	env := startTestServer(t, testConfig())

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA, _, err := websocket.Dial(ctx, env.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	connB, _, err := websocket.Dial(ctx, env.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	// Registration happens after the upgrade; give the hub a moment.
	time.Sleep(100 * time.Millisecond)

	env.publish(t, "<p>shared</p>")
	for name, conn := range map[string]*websocket.Conn{"A": connA, "B": connB} {
		out := readOutbound(ctx, t, conn)
		if out.HTML != "<p>shared</p>" {
			t.Fatalf("browser %s got %+v", name, out)
		}
	}

	if err := env.hub.Alert(ctx, core.NewError(core.ErrCodeUpstreamDown, "feed lost")); err != nil {
		t.Fatalf("alert: %v", err)
	}
	out := readOutbound(ctx, t, connA)
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != core.ErrCodeUpstreamDown {
		t.Fatalf("unexpected alert outbound: %+v", out)
	}
}

func TestWebSocketClosedOnHubShutdown(t *testing.T) {
	hub := core.NewHub(nil, nil)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	disabledLogger := zerolog.Nop()
	ts := httptest.NewServer(NewWSHandler(hub, &disabledLogger))
	defer ts.Close()

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn, _, err := websocket.Dial(ctx, strings.Replace(ts.URL, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	time.Sleep(100 * time.Millisecond)
	stopHub()

	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected the connection to be closed after hub shutdown")
	}
	if ctx.Err() != nil {
		t.Fatal("connection was not closed before the deadline")
	}
}

func TestWriteEventTimesOutOnStalledBrowser(t *testing.T) {
	result := make(chan error, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			result <- err
			return
		}
		defer conn.CloseNow()

		chunk := strings.Repeat("a", 1<<20)
		for i := 0; i < 256; i++ {
			ev := &core.Event{Kind: core.EventFrame, Frame: &core.Frame{HTML: chunk}}
			if err := writeEvent(context.Background(), conn, ev, 50*time.Millisecond); err != nil {
				result <- err
				return
			}
		}
		result <- nil
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The browser side never reads, so the server's writes eventually stall.
	conn, _, err := websocket.Dial(ctx, strings.Replace(ts.URL, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	select {
	case err := <-result:
		if err == nil {
			t.Fatal("expected a stalled write to time out")
		}
	case <-ctx.Done():
		t.Fatal("write did not time out")
	}
}
