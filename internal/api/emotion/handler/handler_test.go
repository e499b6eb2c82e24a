package emotionHandler

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

	"EmotionStream/internal/api/emotion"
	"EmotionStream/internal/entity"
	"EmotionStream/internal/middleware"
	"EmotionStream/internal/stream"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type fakeService struct {
	mu       sync.Mutex
	registry *stream.Registry
	records  []entity.EmotionRecord
	latest   map[string]string
	gotLimit int
}

func (f *fakeService) Detect(ctx context.Context, frame []byte) (*string, error) {
	if string(frame) == "no-face" {
		return nil, nil
	}
	label := "Feliz"
	return &label, nil
}

func (f *fakeService) Record(ctx context.Context, record entity.EmotionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeService) RegisterClient(ctx context.Context, name string) (string, error) {
	s, ok := f.registry.Current()
	if !ok {
		return "", emotion.ErrNoActiveSession
	}
	s.Register(name)
	return name, nil
}

func (f *fakeService) StopDetection(ctx context.Context) error {
	s, ok := f.registry.Current()
	if !ok {
		return emotion.ErrNoActiveSession
	}
	s.Stop()
	return nil
}

func (f *fakeService) CurrentSession(ctx context.Context) (stream.SessionStatus, error) {
	s, ok := f.registry.Current()
	if !ok {
		return stream.SessionStatus{}, emotion.ErrNoActiveSession
	}
	return s.Status(), nil
}

func (f *fakeService) GetRecords(ctx context.Context, clientName string, limit int) ([]entity.EmotionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > emotion.MaxRecordsLimit {
		return nil, emotion.ErrInvalidLimit
	}
	f.gotLimit = limit
	var out []entity.EmotionRecord
	for _, r := range f.records {
		if r.ClientName == clientName {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeService) GetLatestEmotion(ctx context.Context, clientName string) (string, error) {
	v, ok := f.latest[clientName]
	if !ok {
		return "", emotion.ErrLatestNotFound
	}
	return v, nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewULIDFromTimestamp(t time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return strings.Repeat("0", 20) + time.Unix(int64(s.n), 0).UTC().Format("150405"), nil
}

func newTestApp(t *testing.T) (*fiber.App, *fakeService) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry := stream.NewRegistry()
	svc := &fakeService{registry: registry, latest: map[string]string{}}
	pipeline := stream.NewPipeline(svc, svc, registry, &seqIDs{}, logger, stream.WithShutdownWait(time.Second))

	mw := middleware.New(logger)
	app := fiber.New()
	app.Use(mw.NewRequestIDMiddleware())
	New(logger, validator.New(), mw, svc, pipeline).Start(app.Group("/api/v1"))

	return app, svc
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestControlWithoutSession(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/emotion/register", map[string]string{"name": "Ana"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("register: expected 409, got %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/emotion/stop", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("stop: expected 409, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/emotion/session", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("session: expected 409, got %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/emotion/register", map[string]string{"name": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
	if body["code"] != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %v", body)
	}

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/emotion/register", map[string]string{"name": "   "})
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "VALIDATION_ERROR" {
		t.Errorf("Expected 400 for a blank name, got %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/emotion/register", map[string]string{"name": strings.Repeat("a", 101)})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for long name, got %d", resp.StatusCode)
	}
}

func TestRecordsEndpoint(t *testing.T) {
	app, svc := newTestApp(t)
	svc.records = []entity.EmotionRecord{
		{ID: "1", ClientName: "Ana", Emotion: "Feliz"},
		{ID: "2", ClientName: "Luis", Emotion: "Triste"},
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/emotion/records/Ana", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body["count"] != float64(1) {
		t.Errorf("Expected count 1, got %v", body["count"])
	}
	if svc.gotLimit != emotion.DefaultRecordsLimit {
		t.Errorf("Expected default limit, got %d", svc.gotLimit)
	}

	for _, q := range []string{"abc", "0", "501"} {
		resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/emotion/records/Ana?limit="+q, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestLatestEndpoint(t *testing.T) {
	app, svc := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/emotion/latest/Ana", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	svc.latest["Ana"] = "Sorprendido"
	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/emotion/latest/Ana", nil)
	if resp.StatusCode != http.StatusOK || body["emotion"] != "Sorprendido" {
		t.Errorf("Expected Sorprendido, got %d %v", resp.StatusCode, body)
	}
}

func TestStreamRequiresUpgrade(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/emotion/ws", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("Expected 426, got %d", resp.StatusCode)
	}
}

func TestStreamEndToEnd(t *testing.T) {
	app, svc := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	defer app.Shutdown()

	base := "http://" + ln.Addr().String()
	wsURL := "ws://" + ln.Addr().String() + "/api/v1/emotion/ws"

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForSession(t, svc.registry)

	post := func(path, body string) int {
		resp, err := http.Post(base+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post("/api/v1/emotion/register", `{"name":"  Ana "}`); code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", code)
	}

	readResult := func() entity.DetectionResult {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var res entity.DetectionResult
		if err := conn.ReadJSON(&res); err != nil {
			t.Fatalf("read result: %v", err)
		}
		return res
	}

	if err := conn.WriteMessage(gorillaws.BinaryMessage, []byte("face")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if res := readResult(); res.Emotion == nil || *res.Emotion != "Feliz" {
		t.Errorf("Expected Feliz, got %v", res.Emotion)
	}

	if err := conn.WriteMessage(gorillaws.BinaryMessage, []byte("no-face")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if res := readResult(); res.Emotion != nil {
		t.Errorf("Expected null emotion, got %q", *res.Emotion)
	}

	svc.mu.Lock()
	recorded := append([]entity.EmotionRecord(nil), svc.records...)
	svc.mu.Unlock()
	if len(recorded) != 1 || recorded[0].ClientName != "Ana" {
		t.Errorf("Expected one record for Ana, got %+v", recorded)
	}

	if code := post("/api/v1/emotion/stop", ""); code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", code)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := svc.registry.Current(); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Session was not cleaned up after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForSession(t *testing.T, registry *stream.Registry) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := registry.Current(); ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("Session was not attached")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
