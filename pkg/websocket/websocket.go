package websocketPkg

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ILandmarkClient extracts facial landmark features by delegating to the
// remote landmark service. A nil slice with a nil error means no face.
type ILandmarkClient interface {
	ExtractLandmarks(ctx context.Context, frame []byte) ([]float64, error)
	IsConnected() bool
	Reconnect() error
	CloseConnection()
}

type landmarkResponse struct {
	Landmarks []float64 `json:"landmarks"`
	Error     string    `json:"error,omitempty"`
}

type landmarkClient struct {
	url          string
	log          *logrus.Logger
	conn         *websocket.Conn
	mu           sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func URLFromEnv() string {
	url := os.Getenv("LANDMARK_SERVICE_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/landmarks/ws"
	}
	return url
}

func NewLandmarkClient(log *logrus.Logger, url string) ILandmarkClient {
	client := &landmarkClient{
		url:          url,
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	go client.connectInBackground()

	return client
}

func (c *landmarkClient) connectInBackground() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return
	}
	if err := c.connectLocked(); err != nil {
		c.log.Warnf("Initial connection to landmark service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Info("Successfully connected to landmark service")
}

func (c *landmarkClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

func (c *landmarkClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked()
}

func (c *landmarkClient) connectLocked() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return fmt.Errorf("landmark service URL not configured")
	}

	c.log.Infof("Connecting to landmark service at %s", c.url)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn

	go c.keepAlive(conn)

	return nil
}

func (c *landmarkClient) CloseConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *landmarkClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping failed for landmark service, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *landmarkClient) ExtractLandmarks(ctx context.Context, frame []byte) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// one exchange at a time on the shared socket
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(); err != nil {
			return nil, fmt.Errorf("cannot connect to landmark service: %w", err)
		}
	}
	conn := c.conn

	_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	_ = conn.SetReadDeadline(time.Now().Add(c.writeTimeout + c.readTimeout))

	stop := context.AfterFunc(ctx, func() {
		// unblocks a pending read or write
		_ = conn.SetReadDeadline(time.Now())
		_ = conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.dropLocked(conn)
		return nil, contextOr(ctx, fmt.Errorf("error sending frame: %w", err))
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropLocked(conn)
		return nil, contextOr(ctx, fmt.Errorf("error reading landmarks: %w", err))
	}

	if !stop() {
		// the cancellation raced the successful read; deadlines are poisoned
		c.dropLocked(conn)
		return nil, ctx.Err()
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	var result landmarkResponse
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling landmark response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("landmark service: %s", result.Error)
	}

	c.log.Debugf("Landmark service returned %d values", len(result.Landmarks))

	if len(result.Landmarks) == 0 {
		return nil, nil
	}
	return result.Landmarks, nil
}

// dropLocked forgets conn if it is still the current connection. A request
// and its response share the socket, so a failure mid-exchange leaves the
// stream out of step and the connection has to be rebuilt.
func (c *landmarkClient) dropLocked(conn *websocket.Conn) {
	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

func contextOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
