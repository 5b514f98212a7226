// Package mqtt publishes camera state and dings to an MQTT broker so home
// automation systems can consume them without polling the HTTP API.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/device"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second
	maxQoS            = 2

	statusOnline  = "online"
	statusOffline = "offline"
)

// Config configures the publisher
type Config struct {
	Host        string
	Port        int
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Logger      *zap.Logger
}

// broker is the part of the paho client the publisher uses
type broker interface {
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher pushes camera updates to the broker. It is safe for concurrent
// use; paho serializes the writes.
type Publisher struct {
	client broker
	topics Topics
	qos    byte
	logger *zap.Logger
}

// StatePayload is the retained camera state message
type StatePayload struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Doorbot    bool              `json:"doorbot"`
	LocationID string            `json:"location_id"`
	Data       client.CameraData `json:"data"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DingPayload is the ding event message
type DingPayload struct {
	CameraID   int64             `json:"camera_id"`
	CameraName string            `json:"camera_name"`
	Ding       client.ActiveDing `json:"ding"`
	ReceivedAt time.Time         `json:"received_at"`
}

// Connect dials the broker and announces this process as online. A last
// will marks it offline if the connection drops.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	topics := Topics{Prefix: cfg.TopicPrefix}
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(topics.Status(), statusOffline, 1, true)

	logger := cfg.Logger
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		logger.Info("MQTT connected", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
		c.Publish(topics.Status(), 1, true, statusOnline)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	c := pahomqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return newPublisher(c, topics, cfg.QoS, logger), nil
}

func newPublisher(c broker, topics Topics, qos byte, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: c,
		topics: topics,
		qos:    qos,
		logger: logger,
	}
}

// PublishCameraState publishes the camera's latest data as a retained message
func (p *Publisher) PublishCameraState(cam *device.Camera) error {
	data := cam.Data()
	payload := StatePayload{
		ID:         cam.ID(),
		Name:       data.Description,
		Doorbot:    cam.IsDoorbot(),
		LocationID: data.LocationID,
		Data:       data,
		UpdatedAt:  time.Now().UTC(),
	}
	return p.publishJSON(p.topics.CameraState(data.LocationID, cam.ID()), payload, true)
}

// PublishDing publishes a newly seen ding
func (p *Publisher) PublishDing(cam *device.Camera, ding client.ActiveDing) error {
	payload := DingPayload{
		CameraID:   cam.ID(),
		CameraName: cam.Name(),
		Ding:       ding,
		ReceivedAt: time.Now().UTC(),
	}
	return p.publishJSON(p.topics.CameraDing(cam.LocationID(), cam.ID()), payload, false)
}

func (p *Publisher) publishJSON(topic string, v any, retained bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	token := p.client.Publish(topic, p.qos, retained, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	p.logger.Debug("MQTT message published", zap.String("topic", topic), zap.Bool("retained", retained))
	return nil
}

// Close marks this process offline and disconnects
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		token := p.client.Publish(p.topics.Status(), 1, true, statusOffline)
		token.WaitTimeout(publishTimeout)
	}
	p.client.Disconnect(disconnectQuiesce)
}
