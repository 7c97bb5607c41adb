package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

// PublishClient is the subset of the paho client the publisher uses.
type PublishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Message is one queued status update.
type Message struct {
	Topic    string
	Payload  string
	Retained bool
}

// Publisher turns shade reports into retained status messages. Reports are
// queued and published from Start, so the shade core never waits on the broker.
type Publisher struct {
	client  PublishClient
	prefix  string
	timeout time.Duration
	queue   chan Message
}

// NewPublisher creates a publisher with room for size pending messages.
func NewPublisher(client PublishClient, prefix string, size int) *Publisher {
	if size <= 0 {
		size = 256
	}
	return &Publisher{
		client:  client,
		prefix:  prefix,
		timeout: 5 * time.Second,
		queue:   make(chan Message, size),
	}
}

// ReportPosition queues <prefix>/<addr>/position.
func (p *Publisher) ReportPosition(addr urts.Address, percent float64) {
	p.enqueue(Message{
		Topic:    PositionTopic(p.prefix, addr.String()),
		Payload:  strconv.FormatFloat(percent, 'f', 1, 64),
		Retained: true,
	})
}

// ReportTravelTime queues <prefix>/<addr>/travel_time.
func (p *Publisher) ReportTravelTime(addr urts.Address, seconds float64) {
	p.enqueue(Message{
		Topic:    TravelTimeTopic(p.prefix, addr.String()),
		Payload:  strconv.FormatFloat(seconds, 'f', -1, 64),
		Retained: true,
	})
}

// ReportConnection queues <prefix>/connected.
func (p *Publisher) ReportConnection(connected bool) {
	p.enqueue(Message{
		Topic:    ConnectedTopic(p.prefix),
		Payload:  strconv.FormatBool(connected),
		Retained: true,
	})
}

func (p *Publisher) enqueue(msg Message) {
	select {
	case p.queue <- msg:
	default:
		debug.Warn("mqtt: publish queue full, dropping %s", msg.Topic)
	}
}

// Start publishes queued messages until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	debug.Verbose("mqtt publisher: starting")
	for {
		select {
		case <-ctx.Done():
			debug.Verbose("mqtt publisher: context cancelled, shutting down")
			return
		case msg := <-p.queue:
			if err := p.publish(msg); err != nil {
				debug.Error(err)
			}
		}
	}
}

func (p *Publisher) publish(msg Message) error {
	token := p.client.Publish(msg.Topic, 1, msg.Retained, msg.Payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timed out", msg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	debug.Trace("mqtt: %s = %s", msg.Topic, msg.Payload)
	return nil
}
