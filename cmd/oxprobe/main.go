// Command oxprobe exercises a running oxweb instance from the outside:
// an HTTP check against any route and a websocket check that drives the
// post-upgrade ping loop.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "http":
		fs := flag.NewFlagSet("http", flag.ExitOnError)
		timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
		fs.Parse(os.Args[2:])
		if fs.NArg() != 1 {
			usage()
		}
		if err := probeHTTP(fs.Arg(0), *timeout); err != nil {
			logger.Error("http probe failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case "ws":
		fs := flag.NewFlagSet("ws", flag.ExitOnError)
		count := fs.Int("count", 3, "number of ping frames to send")
		timeout := fs.Duration("timeout", 10*time.Second, "per-frame timeout")
		fs.Parse(os.Args[2:])
		if fs.NArg() != 1 {
			usage()
		}
		if err := probeWebSocket(fs.Arg(0), *count, *timeout); err != nil {
			logger.Error("websocket probe failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case "hold":
		fs := flag.NewFlagSet("hold", flag.ExitOnError)
		hold := fs.Duration("for", 5*time.Second, "how long to hold the connection open")
		checkURL := fs.String("check", "", "HTTP URL to probe while holding, to verify the server stays responsive")
		fs.Parse(os.Args[2:])
		if fs.NArg() != 1 {
			usage()
		}
		if err := probeHold(fs.Arg(0), *hold, *checkURL); err != nil {
			logger.Error("hold probe failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  oxprobe http [-timeout 10s] <url>")
	fmt.Fprintln(os.Stderr, "  oxprobe ws [-count 3] [-timeout 10s] <ws-url>")
	fmt.Fprintln(os.Stderr, "  oxprobe hold [-for 5s] [-check <url>] <host:port>")
	os.Exit(2)
}

func probeHTTP(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	fmt.Printf("%d %s\n", resp.StatusCode, resp.Status)
	if len(body) > 0 {
		fmt.Println(string(body))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

// probeWebSocket dials the ping route and verifies each frame comes back
// as a pong payload.
func probeWebSocket(url string, count int, timeout time.Duration) error {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	for i := 0; i < count; i++ {
		deadline := time.Now().Add(timeout)
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)

		start := time.Now()
		if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
			return fmt.Errorf("write frame %d: %w", i+1, err)
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame %d: %w", i+1, err)
		}

		var payload struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(msg, &payload); err != nil {
			return fmt.Errorf("frame %d: unexpected payload %q", i+1, msg)
		}
		if payload.Response != "pong" {
			return fmt.Errorf("frame %d: got %q, want pong", i+1, payload.Response)
		}
		fmt.Printf("pong %d/%d in %s\n", i+1, count, time.Since(start).Round(time.Microsecond))
	}

	return conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(timeout))
}

// probeHold opens a raw TCP connection, sends the start of a request but
// never completes it, and holds the connection open. With -check set it
// verifies the server keeps answering other requests while the idle
// connection is parked.
func probeHold(addr string, hold time.Duration, checkURL string) error {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET /")); err != nil {
		return fmt.Errorf("write partial request: %w", err)
	}
	fmt.Printf("holding connection to %s for %s\n", addr, hold)

	if checkURL != "" {
		if err := probeHTTP(checkURL, 10*time.Second); err != nil {
			return fmt.Errorf("server unresponsive while holding: %w", err)
		}
	}

	time.Sleep(hold)
	return nil
}
