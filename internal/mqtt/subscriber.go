package mqtt

import (
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/shade"
)

// SubscribeClient is the subset of the paho client the subscriber uses.
type SubscribeClient interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Dispatcher executes a parsed command. *shade.Controller implements it.
type Dispatcher interface {
	Dispatch(address string, cmd shade.Command) (shade.Status, error)
}

// Subscriber routes command topics to the shade controller.
type Subscriber struct {
	client     SubscribeClient
	prefix     string
	dispatcher Dispatcher
}

// NewSubscriber creates a subscriber for the shades under prefix.
func NewSubscriber(client SubscribeClient, prefix string, dispatcher Dispatcher) *Subscriber {
	return &Subscriber{client: client, prefix: prefix, dispatcher: dispatcher}
}

// SubscribeAll subscribes to the command and travel time topics of every shade.
func (s *Subscriber) SubscribeAll() error {
	for _, filter := range []string{CommandFilter(s.prefix), TravelTimeFilter(s.prefix)} {
		token := s.client.Subscribe(filter, 1, s.handle)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", filter, token.Error())
		}
		debug.Verbose("mqtt: subscribed to %s", filter)
	}
	return nil
}

// handle runs on its own goroutine per message since the client is built
// with SetOrderMatters(false), so a send stuck in retries blocks only itself.
func (s *Subscriber) handle(_ mqtt.Client, msg mqtt.Message) {
	if err := s.execute(msg.Topic(), string(msg.Payload())); err != nil {
		debug.Errorf(err, "mqtt command on %s", msg.Topic())
	}
}

// execute parses one command message and dispatches it. Payloads are a verb
// with an optional argument ("move 40"), a bare percent, or for travel time
// topics the number of seconds.
func (s *Subscriber) execute(topic, payload string) error {
	addr, travel, ok := splitCommandTopic(s.prefix, topic)
	if !ok {
		return fmt.Errorf("%w: topic %q", shade.ErrUnknownCommand, topic)
	}

	var cmd shade.Command
	var err error
	if travel {
		cmd, err = shade.ParseCommand("travel", payload)
	} else {
		verb, arg, _ := strings.Cut(strings.TrimSpace(payload), " ")
		cmd, err = shade.ParseCommand(verb, arg)
	}
	if err != nil {
		return err
	}

	debug.Live("mqtt: %s %s", addr, cmd.Kind)
	_, err = s.dispatcher.Dispatch(addr, cmd)
	return err
}
