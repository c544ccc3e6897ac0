package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"facewatch-go/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{ err error }

func (t *doneToken) Wait() bool { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *doneToken) Error() error { return t.err }

type published struct {
	topic   string
	retain  bool
	payload string
}

// fakeClient records publishes instead of talking to a broker
type fakeClient struct {
	mu         sync.Mutex
	opts       *mqtt.ClientOptions
	connected  bool
	connectErr error
	messages   []published
}

func (f *fakeClient) IsConnected() bool { return f.connected }
func (f *fakeClient) IsConnectionOpen() bool { return f.connected }

func (f *fakeClient) Connect() mqtt.Token {
	if f.connectErr == nil {
		f.connected = true
	}
	return &doneToken{err: f.connectErr}
}

func (f *fakeClient) Disconnect(quiesce uint) { f.connected = false }

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic: topic, retain: retained, payload: string(payload.([]byte))})
	return &doneToken{}
}

func (f *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token { return &doneToken{} }
func (f *fakeClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &doneToken{}
}
func (f *fakeClient) Unsubscribe(...string) mqtt.Token { return &doneToken{} }
func (f *fakeClient) AddRoute(string, mqtt.MessageHandler) {}
func (f *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.NewOptionsReader(f.opts) }

func withFakeClient(t *testing.T, fake *fakeClient) {
	t.Helper()
	orig := NewClientFunc
	NewClientFunc = func(o *mqtt.ClientOptions) mqtt.Client {
		fake.opts = o
		return fake
	}
	t.Cleanup(func() { NewClientFunc = orig })
}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{Enabled: true, Broker: "broker.local", Port: 1883, ClientID: "test", TopicPrefix: "facewatch/"}
}

func TestTopics(t *testing.T) {
	c := NewClient(testConfig())

	assert.Equal(t, "tcp://broker.local:1883", c.BrokerURL())
	assert.Equal(t, "facewatch/status", c.StatusTopic())
	assert.Equal(t, "facewatch/sightings/a_person", c.SightingTopic("a_person"))
	assert.Equal(t, "facewatch/sightings/jane_doe", c.SightingTopic("Jane Doe"))
	assert.Equal(t, "facewatch/sightings/a_b", c.SightingTopic("a/b"))
}

func TestStartPublishStop(t *testing.T) {
	fake := &fakeClient{}
	withFakeClient(t, fake)

	c := NewClient(testConfig())
	require.NoError(t, c.Start())
	assert.True(t, c.IsConnected())

	reader := mqtt.NewOptionsReader(fake.opts)
	assert.Equal(t, "facewatch/status", reader.WillTopic())
	assert.True(t, reader.WillRetained())

	require.NoError(t, c.Publish(c.SightingTopic("a_person"), map[string]interface{}{"name": "a_person"}))
	require.NoError(t, c.PublishRetain("facewatch/raw", "text"))

	c.Stop()
	assert.False(t, c.IsConnected())

	require.Len(t, fake.messages, 3)
	assert.Equal(t, "facewatch/sightings/a_person", fake.messages[0].topic)
	assert.JSONEq(t, `{"name":"a_person"}`, fake.messages[0].payload)
	assert.False(t, fake.messages[0].retain)
	assert.Equal(t, published{topic: "facewatch/raw", retain: true, payload: "text"}, fake.messages[1])
	assert.Equal(t, published{topic: "facewatch/status", retain: true, payload: "offline"}, fake.messages[2])
}

func TestStart_ConnectError(t *testing.T) {
	withFakeClient(t, &fakeClient{connectErr: errors.New("refused")})

	c := NewClient(testConfig())
	err := c.Start()
	assert.ErrorContains(t, err, "refused")
	assert.Error(t, c.Publish("x", "y"))
}

func TestOnConnectPublishesOnline(t *testing.T) {
	fake := &fakeClient{connected: true}
	c := NewClient(testConfig())

	c.onConnectHandler(fake)
	require.Len(t, fake.messages, 1)
	assert.Equal(t, published{topic: "facewatch/status", retain: true, payload: "online"}, fake.messages[0])
}
