package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
)

// ErrConnectTimeout is returned when the broker does not answer in time.
var ErrConnectTimeout = errors.New("mqtt: connect timed out")

// Client manages the broker connection. Publishing and subscribing live in
// Publisher and Subscriber.
type Client struct {
	client mqtt.Client
	config ClientConfig

	mu        sync.Mutex
	onConnect []func()
}

// ClientConfig holds MQTT client configuration.
type ClientConfig struct {
	Broker         string
	ClientID       string // empty = somfy-urts-<random>
	Username       string
	Password       string
	Prefix         string
	ConnectTimeout time.Duration
}

// DefaultClientID returns a fresh client ID for this daemon instance.
func DefaultClientID() string {
	return "somfy-urts-" + uuid.NewString()[:8]
}

// NewClient prepares a client. Nothing is dialed until Connect.
// The broker publishes "false" on <prefix>/connected if the daemon vanishes.
func NewClient(config ClientConfig) *Client {
	if config.ClientID == "" {
		config.ClientID = DefaultClientID()
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	c := &Client{config: config}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetWill(ConnectedTopic(config.Prefix), "false", 1, true)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		debug.Trace("mqtt: unrouted message on %s", msg.Topic())
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		debug.Info("mqtt: connected to %s as %s", config.Broker, config.ClientID)
		c.mu.Lock()
		hooks := append([]func(){}, c.onConnect...)
		c.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		debug.Warn("mqtt: connection lost: %v", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// OnConnect registers fn to run after every (re)connection. Subscriptions
// belong here since a clean session drops them.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()
}

// Connect dials the broker. With connect-retry enabled paho keeps trying in
// the background after a timeout, so the error is informational.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return fmt.Errorf("%w: %s", ErrConnectTimeout, c.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Native returns the underlying paho client for Publisher and Subscriber.
func (c *Client) Native() mqtt.Client {
	return c.client
}

// ClientID returns the effective client ID.
func (c *Client) ClientID() string {
	return c.config.ClientID
}

// IsConnected returns whether the client is currently connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects, leaving 250ms for in-flight work.
func (c *Client) Close() {
	c.client.Disconnect(250)
	debug.Info("mqtt: disconnected")
}
