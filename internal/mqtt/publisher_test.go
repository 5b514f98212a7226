package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/device"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeBroker struct {
	mu           sync.Mutex
	connected    bool
	err          error
	messages     []message
	disconnected bool
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	b.messages = append(b.messages, message{topic: topic, qos: qos, retained: retained, payload: data})
	return &fakeToken{err: b.err}
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) Disconnect(uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = true
	b.connected = false
}

func testCamera() *device.Camera {
	return device.NewCamera(client.CameraData{
		ID:          42,
		Description: "Front Door",
		LocationID:  "L1",
		BatteryLife: "90",
	}, true)
}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "home/ring/"}
	assert.Equal(t, "home/ring/L1/camera/42/state", topics.CameraState("L1", 42))
	assert.Equal(t, "home/ring/L1/camera/42/ding", topics.CameraDing("L1", 42))
	assert.Equal(t, "home/ring/status", topics.Status())

	assert.Equal(t, "ring/status", Topics{}.Status())
}

func TestPublishCameraStateIsRetained(t *testing.T) {
	b := &fakeBroker{connected: true}
	p := newPublisher(b, Topics{Prefix: "ring"}, 1, zaptest.NewLogger(t))

	require.NoError(t, p.PublishCameraState(testCamera()))

	require.Len(t, b.messages, 1)
	msg := b.messages[0]
	assert.Equal(t, "ring/L1/camera/42/state", msg.topic)
	assert.True(t, msg.retained)
	assert.Equal(t, byte(1), msg.qos)

	var payload StatePayload
	require.NoError(t, json.Unmarshal(msg.payload, &payload))
	assert.Equal(t, int64(42), payload.ID)
	assert.Equal(t, "Front Door", payload.Name)
	assert.True(t, payload.Doorbot)
	assert.Equal(t, "90", payload.Data.BatteryLife.String())
}

func TestPublishDingIsNotRetained(t *testing.T) {
	b := &fakeBroker{connected: true}
	p := newPublisher(b, Topics{Prefix: "ring"}, 0, zaptest.NewLogger(t))

	require.NoError(t, p.PublishDing(testCamera(), client.ActiveDing{IDStr: "7", DoorbotID: 42, Kind: "ding"}))

	require.Len(t, b.messages, 1)
	msg := b.messages[0]
	assert.Equal(t, "ring/L1/camera/42/ding", msg.topic)
	assert.False(t, msg.retained)

	var payload DingPayload
	require.NoError(t, json.Unmarshal(msg.payload, &payload))
	assert.Equal(t, "7", payload.Ding.Key())
	assert.Equal(t, "Front Door", payload.CameraName)
}

func TestPublishWhenDisconnected(t *testing.T) {
	b := &fakeBroker{}
	p := newPublisher(b, Topics{}, 0, zaptest.NewLogger(t))

	err := p.PublishCameraState(testCamera())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, b.messages)
}

func TestPublishErrorIsWrapped(t *testing.T) {
	b := &fakeBroker{connected: true, err: errors.New("broker gone")}
	p := newPublisher(b, Topics{}, 0, zaptest.NewLogger(t))

	err := p.PublishDing(testCamera(), client.ActiveDing{IDStr: "1"})
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.Contains(t, err.Error(), "broker gone")
}

func TestCloseAnnouncesOffline(t *testing.T) {
	b := &fakeBroker{connected: true}
	p := newPublisher(b, Topics{Prefix: "ring"}, 0, zaptest.NewLogger(t))

	p.Close()

	require.Len(t, b.messages, 1)
	assert.Equal(t, "ring/status", b.messages[0].topic)
	assert.Equal(t, statusOffline, string(b.messages[0].payload))
	assert.True(t, b.messages[0].retained)
	assert.True(t, b.disconnected)
}

func TestConnectRejectsBadQoS(t *testing.T) {
	_, err := Connect(Config{Host: "localhost", Port: 1883, QoS: 3})
	assert.ErrorIs(t, err, ErrInvalidQoS)
}
