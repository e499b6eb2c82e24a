package mqtt

import (
	"fmt"
	"os"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// IPublisher fans emotion records out to an MQTT broker.
type IPublisher interface {
	Publish(clientName string, payload any) error
	Close()
}

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

// ConfigFromEnv returns nil when MQTT_BROKER is unset.
func ConfigFromEnv() *Config {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		return nil
	}

	cfg := &Config{
		Broker:   broker,
		ClientID: os.Getenv("MQTT_CLIENT_ID"),
		Topic:    os.Getenv("MQTT_TOPIC"),
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "emotion-stream"
	}
	if cfg.Topic == "" {
		cfg.Topic = "emotion/records"
	}
	return cfg
}

type publisher struct {
	cfg    Config
	client pahomqtt.Client
	log    *logrus.Logger

	mu        sync.RWMutex
	connected bool
}

func New(cfg Config, log *logrus.Logger) (IPublisher, error) {
	p := &publisher{cfg: cfg, log: log}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(pahomqtt.Client) {
		p.setConnected(true)
		log.WithFields(logrus.Fields{"broker": cfg.Broker}).Info("MQTT connection established")
	}
	opts.OnConnectionLost = func(_ pahomqtt.Client, err error) {
		p.setConnected(false)
		log.WithFields(logrus.Fields{
			"broker": cfg.Broker,
			"error":  err,
		}).Warn("MQTT connection lost, will auto-reconnect")
	}

	p.client = pahomqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	p.setConnected(true)

	return p, nil
}

func (p *publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *publisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Topic builds {topic}/{client}.
func (p *publisher) Topic(clientName string) string {
	return fmt.Sprintf("%s/%s", p.cfg.Topic, clientName)
}

func (p *publisher) Publish(clientName string, payload any) error {
	if !p.isConnected() {
		return fmt.Errorf("mqtt not connected")
	}

	body, err := jsoniter.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := p.client.Publish(p.Topic(clientName), p.cfg.QoS, false, body)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

func (p *publisher) Close() {
	p.client.Disconnect(250)
}
