package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/figaro/internal/model"
	"github.com/vovakirdan/figaro/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "live view WebSocket address")
	statusURL := flag.String("status-url", "", "optional /api/status URL to post a change to")
	channel := flag.String("channel", "", "channel id for the status change")
	ok := flag.Bool("ok", true, "status to submit")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	conn.SetReadLimit(4 << 20)

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch outbound.Type {
		case proto.OutboundTypeError:
			if outbound.Error != nil {
				fmt.Printf("Error: code=%s msg=%s\n", outbound.Error.Code, outbound.Error.Msg)
			}
		case proto.OutboundTypeFrame:
			fmt.Printf("Frame: %d bytes, %d panels\n", len(outbound.HTML), strings.Count(outbound.HTML, `class="panel panel-default`))
			if *statusURL == "" {
				return nil
			}
			return postStatus(ctx, *statusURL, model.StatusChange{Ok: *ok, ChannelID: *channel})
		default:
			fmt.Printf("Unknown outbound type %q\n", outbound.Type)
		}
	}
}

func postStatus(ctx context.Context, url string, change model.StatusChange) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("post status: %w", err)
	}
	defer resp.Body.Close()

	fmt.Printf("Status change: channel=%s ok=%t -> %d\n", change.ChannelID, change.Ok, resp.StatusCode)
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
