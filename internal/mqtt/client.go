package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"facewatch-go/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// NewClientFunc builds the paho client; tests replace it
var NewClientFunc = mqtt.NewClient

// Client publishes messages below the configured topic prefix
type Client struct {
	cfg       config.MQTTConfig
	client    mqtt.Client
	connected atomic.Bool
}

// NewClient creates an unconnected client
func NewClient(cfg config.MQTTConfig) *Client {
	return &Client{cfg: cfg}
}

// BrokerURL returns the tcp URL of the broker
func (c *Client) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.cfg.Broker, c.cfg.Port)
}

// Topic joins parts below the topic prefix
func (c *Client) Topic(parts ...string) string {
	prefix := strings.TrimSuffix(c.cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "facewatch"
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// StatusTopic carries the retained online/offline availability
func (c *Client) StatusTopic() string {
	return c.Topic("status")
}

// SightingTopic is where sightings of name are published
func (c *Client) SightingTopic(name string) string {
	return c.Topic("sightings", NormalizeName(name))
}

// NormalizeName makes a name safe for use as a topic level
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "/", "_", "+", "_", "#", "_").Replace(name)
}

// Start connects to the broker. paho keeps reconnecting in the background
// after the first successful connect.
func (c *Client) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.BrokerURL())
	opts.SetClientID(c.cfg.ClientID)
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	opts.SetWill(c.StatusTopic(), payloadOffline, 1, true)
	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetConnectionLostHandler(c.connectionLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	c.client = NewClientFunc(opts)

	log.Infof("Connecting to MQTT broker at %s", c.BrokerURL())
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", c.BrokerURL(), token.Error())
	}
	c.connected.Store(true)
	return nil
}

// Stop marks the service offline and disconnects
func (c *Client) Stop() {
	if c.client == nil || !c.client.IsConnected() {
		return
	}
	if err := c.PublishRetain(c.StatusTopic(), payloadOffline); err != nil {
		log.Debugf("Failed to publish offline status: %v", err)
	}
	log.Info("Disconnecting MQTT client...")
	c.client.Disconnect(250)
	c.connected.Store(false)
}

// IsConnected reports the state of the underlying connection
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

func (c *Client) onConnectHandler(client mqtt.Client) {
	log.Infof("Connected to MQTT broker at %s", c.BrokerURL())
	c.connected.Store(true)

	token := client.Publish(c.StatusTopic(), 1, true, []byte(payloadOnline))
	if token.Wait() && token.Error() != nil {
		log.Warnf("Failed to publish online status: %v", token.Error())
	}
}

func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	log.Errorf("MQTT connection lost: %v", err)
	c.connected.Store(false)
}

// PublishMessage sends payload to topic. Strings and byte slices are sent
// as they are, everything else as JSON.
func (c *Client) PublishMessage(topic string, payload interface{}, retain bool) error {
	if !c.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	var data []byte
	switch p := payload.(type) {
	case string:
		data = []byte(p)
	case []byte:
		data = p
	default:
		var err error
		data, err = json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal payload to JSON: %w", err)
		}
	}

	token := c.client.Publish(topic, 1, retain, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message to topic %s: %w", topic, token.Error())
	}

	log.Debugf("Published message to topic: %s", topic)
	return nil
}

// Publish sends a non-retained message
func (c *Client) Publish(topic string, payload interface{}) error {
	return c.PublishMessage(topic, payload, false)
}

// PublishRetain sends a retained message
func (c *Client) PublishRetain(topic string, payload interface{}) error {
	return c.PublishMessage(topic, payload, true)
}
