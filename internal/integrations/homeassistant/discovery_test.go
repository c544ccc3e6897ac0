package homeassistant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topics  []string
	configs []SensorConfig
	failOn  string
}

func (f *fakePublisher) PublishRetain(topic string, payload interface{}) error {
	if topic == f.failOn {
		return errors.New("broker gone")
	}
	f.topics = append(f.topics, topic)
	f.configs = append(f.configs, payload.(SensorConfig))
	return nil
}

func (f *fakePublisher) SightingTopic(name string) string { return "facewatch/sightings/" + name }

func (f *fakePublisher) StatusTopic() string { return "facewatch/status" }

func TestRegisterIdentities(t *testing.T) {
	pub := &fakePublisher{}
	dm := NewDiscoveryManager(pub, "", "1.0.0")

	require.NoError(t, dm.RegisterIdentities([]string{"a_person", "Jane Doe"}, "Unknown"))

	assert.Equal(t, []string{
		"homeassistant/sensor/facewatch/a_person/config",
		"homeassistant/sensor/facewatch/jane_doe/config",
		"homeassistant/sensor/facewatch/unknown/config",
	}, pub.topics)

	sensor := pub.configs[0]
	assert.Equal(t, "facewatch_a_person", sensor.UniqueID)
	assert.Equal(t, "facewatch/sightings/a_person", sensor.StateTopic)
	assert.Equal(t, "facewatch/status", sensor.AvailabilityTopic)
	assert.Equal(t, "1.0.0", sensor.Device.SWVersion)
}

func TestRegisterIdentities_ContinuesAfterFailure(t *testing.T) {
	pub := &fakePublisher{failOn: "homeassistant/sensor/facewatch/a_person/config"}
	dm := NewDiscoveryManager(pub, "homeassistant", "")

	err := dm.RegisterIdentities([]string{"a_person", "b_person"}, "Unknown")
	assert.Error(t, err)
	assert.Len(t, pub.topics, 2)
}
