package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/shade"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeClient struct {
	mu        sync.Mutex
	published []Message
	filters   []string
	handler   mqtt.MessageHandler
	err       error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, Message{Topic: topic, Payload: payload.(string), Retained: retained})
	return fakeToken{err: c.err}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, topic)
	c.handler = callback
	return fakeToken{err: c.err}
}

func (c *fakeClient) messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.published...)
}

type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

type dispatched struct {
	addr string
	cmd  shade.Command
}

type fakeDispatcher struct {
	calls []dispatched
	err   error
}

func (d *fakeDispatcher) Dispatch(address string, cmd shade.Command) (shade.Status, error) {
	d.calls = append(d.calls, dispatched{address, cmd})
	return shade.Status{Address: address}, d.err
}

func mustAddress(t *testing.T, s string) urts.Address {
	t.Helper()
	a, err := urts.ParseAddress(s)
	require.NoError(t, err)
	return a
}

func TestPublisher_Formats(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "somfy", 8)
	addr := mustAddress(t, "01_01_03")

	p.ReportPosition(addr, 37.5)
	p.ReportPosition(addr, 100)
	p.ReportTravelTime(addr, 12.5)
	p.ReportConnection(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return len(client.messages()) == 4 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []Message{
		{Topic: "somfy/01_01_03/position", Payload: "37.5", Retained: true},
		{Topic: "somfy/01_01_03/position", Payload: "100.0", Retained: true},
		{Topic: "somfy/01_01_03/travel_time", Payload: "12.5", Retained: true},
		{Topic: "somfy/connected", Payload: "false", Retained: true},
	}, client.messages())
}

func TestPublisher_FullQueueDrops(t *testing.T) {
	p := NewPublisher(&fakeClient{}, "somfy", 1)
	addr := mustAddress(t, "01_01_01")

	p.ReportPosition(addr, 10)
	p.ReportPosition(addr, 20) // must not block

	assert.Len(t, p.queue, 1)
	assert.Equal(t, "10.0", (<-p.queue).Payload)
}

func TestPublisher_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	p := NewPublisher(client, "somfy", 1)
	err := p.publish(Message{Topic: "somfy/connected", Payload: "true"})
	assert.ErrorContains(t, err, "not connected")
}

func TestSplitCommandTopic(t *testing.T) {
	cases := []struct {
		topic  string
		addr   string
		travel bool
		ok     bool
	}{
		{"somfy/01_01_03/set", "01_01_03", false, true},
		{"somfy/01_01_03/travel_time/set", "01_01_03", true, true},
		{"somfy/01_01_03/position", "", false, false},
		{"somfy//set", "", false, false},
		{"other/01_01_03/set", "", false, false},
		{"somfy/set", "", false, false},
	}
	for _, tc := range cases {
		t.Run(strings.ReplaceAll(tc.topic, "/", "_"), func(t *testing.T) {
			addr, travel, ok := splitCommandTopic("somfy", tc.topic)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.addr, addr)
			assert.Equal(t, tc.travel, travel)
		})
	}
}

func TestSubscriber_SubscribeAll(t *testing.T) {
	client := &fakeClient{}
	s := NewSubscriber(client, "home/somfy", &fakeDispatcher{})
	require.NoError(t, s.SubscribeAll())
	assert.Equal(t, []string{"home/somfy/+/set", "home/somfy/+/travel_time/set"}, client.filters)

	client.err = errors.New("refused")
	assert.ErrorContains(t, s.SubscribeAll(), "refused")
}

func TestSubscriber_Routes(t *testing.T) {
	cases := []struct {
		topic, payload string
		want           shade.Command
	}{
		{"somfy/01_01_02/set", "open", shade.Command{Kind: shade.Open}},
		{"somfy/01_01_02/set", " 40\n", shade.Command{Kind: shade.MoveTo, Percent: 40}},
		{"somfy/01_01_02/set", "move 65", shade.Command{Kind: shade.MoveTo, Percent: 65}},
		{"somfy/01_01_02/set", "DOWN5", shade.Command{Kind: shade.NudgeDown}},
		{"somfy/01_01_02/travel_time/set", "14", shade.Command{Kind: shade.SetTravelTime, Seconds: 14}},
	}
	for _, tc := range cases {
		t.Run(tc.payload, func(t *testing.T) {
			d := &fakeDispatcher{}
			client := &fakeClient{}
			s := NewSubscriber(client, "somfy", d)
			require.NoError(t, s.SubscribeAll())

			client.handler(nil, fakeMessage{topic: tc.topic, payload: tc.payload})
			require.Len(t, d.calls, 1)
			assert.Equal(t, "01_01_02", d.calls[0].addr)
			assert.Equal(t, tc.want, d.calls[0].cmd)
		})
	}
}

func TestSubscriber_Rejects(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSubscriber(&fakeClient{}, "somfy", d)

	assert.ErrorIs(t, s.execute("somfy/01_01_02/set", "tilt"), shade.ErrUnknownCommand)
	assert.ErrorIs(t, s.execute("somfy/01_01_02/set", "150"), shade.ErrUnknownCommand)
	assert.ErrorIs(t, s.execute("somfy/01_01_02/set", "move abc"), shade.ErrOutOfRange)
	assert.ErrorIs(t, s.execute("somfy/01_01_02/travel_time/set", "0"), shade.ErrOutOfRange)
	assert.ErrorIs(t, s.execute("somfy/01_01_02/position", "10"), shade.ErrUnknownCommand)
	assert.Empty(t, d.calls)

	d.err = shade.ErrPositionUnknown
	assert.ErrorIs(t, s.execute("somfy/01_01_02/set", "up5"), shade.ErrPositionUnknown)
}

func TestDefaultClientID(t *testing.T) {
	id := DefaultClientID()
	assert.True(t, strings.HasPrefix(id, "somfy-urts-"))
	assert.Len(t, id, len("somfy-urts-")+8)
	assert.NotEqual(t, id, DefaultClientID())
}

func TestNewClient_KeepsClientID(t *testing.T) {
	c := NewClient(ClientConfig{Broker: "tcp://127.0.0.1:1", ClientID: "fixed", Prefix: "somfy"})
	assert.Equal(t, "fixed", c.ClientID())
	assert.False(t, c.IsConnected())
}

func TestNewClient_HandlersRunConcurrently(t *testing.T) {
	c := NewClient(ClientConfig{Broker: "tcp://127.0.0.1:1", Prefix: "somfy"})
	opts := c.Native().OptionsReader()
	assert.False(t, opts.Order(), "a slow shade command must not hold up other topics")
	assert.True(t, opts.AutoReconnect())
}
