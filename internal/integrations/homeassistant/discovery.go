package homeassistant

import (
	"fmt"

	"facewatch-go/internal/mqtt"

	log "github.com/sirupsen/logrus"
)

const (
	// ComponentSensor is the discovery component type used for every identity
	ComponentSensor = "sensor"

	// NodeID groups all facewatch entities
	NodeID = "facewatch"
)

// SensorConfig is the MQTT discovery payload for one sensor
type SensorConfig struct {
	Name                string  `json:"name"`
	UniqueID            string  `json:"unique_id"`
	StateTopic          string  `json:"state_topic"`
	Icon                string  `json:"icon,omitempty"`
	DeviceClass         string  `json:"device_class,omitempty"`
	JSONAttributesTopic string  `json:"json_attributes_topic,omitempty"`
	ValueTemplate       string  `json:"value_template,omitempty"`
	AvailabilityTopic   string  `json:"availability_topic,omitempty"`
	PayloadAvailable    string  `json:"payload_available,omitempty"`
	PayloadNotAvailable string  `json:"payload_not_available,omitempty"`
	Device              *Device `json:"device,omitempty"`
}

// Device groups the sensors in Home Assistant
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// Publisher is the part of the MQTT client discovery needs
type Publisher interface {
	PublishRetain(topic string, payload interface{}) error
	SightingTopic(name string) string
	StatusTopic() string
}

// DiscoveryManager announces one "last seen" sensor per gallery identity
type DiscoveryManager struct {
	publisher Publisher
	prefix    string
	version   string
}

// NewDiscoveryManager creates a manager publishing below prefix (usually "homeassistant")
func NewDiscoveryManager(publisher Publisher, prefix, version string) *DiscoveryManager {
	if prefix == "" {
		prefix = "homeassistant"
	}
	return &DiscoveryManager{publisher: publisher, prefix: prefix, version: version}
}

// RegisterIdentities publishes discovery configs for names plus the unknown sentinel.
// Failures are logged per sensor; the first one is returned.
func (dm *DiscoveryManager) RegisterIdentities(names []string, unknown string) error {
	device := &Device{
		Identifiers:  []string{"facewatch_go"},
		Name:         "Facewatch",
		Manufacturer: "facewatch-go",
		Model:        "Webcam face identification",
		SWVersion:    dm.version,
	}

	var firstErr error
	for _, name := range append(append([]string{}, names...), unknown) {
		if err := dm.registerSensor(name, device); err != nil {
			log.Errorf("Failed to register Home Assistant sensor for %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ConfigTopic returns the discovery topic for name
func (dm *DiscoveryManager) ConfigTopic(name string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", dm.prefix, ComponentSensor, NodeID, mqtt.NormalizeName(name))
}

func (dm *DiscoveryManager) registerSensor(name string, device *Device) error {
	normalized := mqtt.NormalizeName(name)
	state := dm.publisher.SightingTopic(name)

	sensor := SensorConfig{
		Name:                fmt.Sprintf("Facewatch %s", name),
		UniqueID:            fmt.Sprintf("facewatch_%s", normalized),
		StateTopic:          state,
		JSONAttributesTopic: state,
		ValueTemplate:       "{{ value_json.seen_at }}",
		DeviceClass:         "timestamp",
		Icon:                "mdi:face-recognition",
		AvailabilityTopic:   dm.publisher.StatusTopic(),
		PayloadAvailable:    "online",
		PayloadNotAvailable: "offline",
		Device:              device,
	}

	log.Debugf("Registering Home Assistant sensor for %s", name)
	if err := dm.publisher.PublishRetain(dm.ConfigTopic(name), sensor); err != nil {
		return fmt.Errorf("failed to publish discovery configuration: %w", err)
	}
	return nil
}
