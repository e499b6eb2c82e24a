package websocketPkg

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newLandmarkServer answers every binary frame with reply(frame). A nil
// reply makes the server hang without answering.
func newLandmarkServer(t *testing.T, reply func(frame []byte) []byte) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			out := reply(frame)
			if out == nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestExtractLandmarks(t *testing.T) {
	url := newLandmarkServer(t, func(frame []byte) []byte {
		if string(frame) == "face" {
			return []byte(`{"landmarks":[0.1,0.2,0.3]}`)
		}
		return []byte(`{"landmarks":[]}`)
	})

	client := NewLandmarkClient(newTestLogger(), url)
	defer client.CloseConnection()

	features, err := client.ExtractLandmarks(context.Background(), []byte("face"))
	if err != nil {
		t.Fatalf("ExtractLandmarks failed: %v", err)
	}
	if len(features) != 3 || features[2] != 0.3 {
		t.Errorf("Unexpected features %v", features)
	}

	features, err = client.ExtractLandmarks(context.Background(), []byte("empty room"))
	if err != nil {
		t.Fatalf("ExtractLandmarks failed: %v", err)
	}
	if features != nil {
		t.Errorf("Expected nil features for no face, got %v", features)
	}
	if !client.IsConnected() {
		t.Error("Expected connection to stay open")
	}
}

func TestExtractLandmarksServiceError(t *testing.T) {
	url := newLandmarkServer(t, func(frame []byte) []byte {
		return []byte(`{"error":"cannot decode image"}`)
	})

	client := NewLandmarkClient(newTestLogger(), url)
	defer client.CloseConnection()

	_, err := client.ExtractLandmarks(context.Background(), []byte("garbage"))
	if err == nil || !strings.Contains(err.Error(), "cannot decode image") {
		t.Fatalf("Expected service error, got %v", err)
	}
}

func TestExtractLandmarksCancelled(t *testing.T) {
	url := newLandmarkServer(t, func(frame []byte) []byte {
		return nil
	})

	client := NewLandmarkClient(newTestLogger(), url)
	defer client.CloseConnection()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.ExtractLandmarks(ctx, []byte("face"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Cancellation took too long: %v", time.Since(start))
	}
	if client.IsConnected() {
		t.Error("Expected interrupted connection to be dropped")
	}
}

func TestExtractLandmarksUnreachable(t *testing.T) {
	client := NewLandmarkClient(newTestLogger(), "ws://127.0.0.1:1/landmarks")
	defer client.CloseConnection()

	if _, err := client.ExtractLandmarks(context.Background(), []byte("face")); err == nil {
		t.Fatal("Expected error for unreachable service")
	}
}
