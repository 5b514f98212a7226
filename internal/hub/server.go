package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/device"
)

// 메시지 타입
const (
	TypeCameraUpdate    = "camera_update"
	TypeDing            = "ding"
	TypeRefresh         = "refresh"
	TypeRefreshAccepted = "refresh_accepted"
	TypeError           = "error"
)

const sendBufferSize = 256

// Server는 카메라 이벤트를 WebSocket 클라이언트에 전달하는 허브입니다
type Server struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	clients map[*Client]bool
	mutex   sync.RWMutex

	// 콜백
	onRefresh func(cameraID int64) error
}

// Client는 WebSocket 클라이언트를 나타냅니다
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
	logger *zap.Logger
}

// Message는 허브 메시지를 나타냅니다
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RefreshPayload는 refresh 요청 페이로드
type RefreshPayload struct {
	CameraID int64 `json:"cameraId"`
}

// CameraPayload는 camera_update 페이로드
type CameraPayload struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Doorbot    bool              `json:"doorbot"`
	LocationID string            `json:"location_id"`
	Data       client.CameraData `json:"data"`
}

// DingPayload는 ding 페이로드
type DingPayload struct {
	CameraID   int64             `json:"camera_id"`
	CameraName string            `json:"camera_name"`
	Ding       client.ActiveDing `json:"ding"`
	ReceivedAt time.Time         `json:"received_at"`
}

// ServerConfig는 허브 설정
type ServerConfig struct {
	Logger    *zap.Logger
	OnRefresh func(cameraID int64) error
}

// NewServer는 새로운 허브를 생성합니다
func NewServer(config ServerConfig) *Server {
	return &Server{
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 로컬 UI 용: 모든 origin 허용
			},
		},
		clients:   make(map[*Client]bool),
		onRefresh: config.OnRefresh,
	}
}

// HandleWebSocket은 WebSocket 연결을 처리합니다
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
		)
		return
	}

	clientID := uuid.NewString()
	client := &Client{
		id:     clientID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		server: s,
		logger: s.logger.With(zap.String("client_id", clientID)),
	}

	s.registerClient(client)

	// 읽기/쓰기 고루틴 시작
	go client.writePump()
	go client.readPump()

	client.logger.Info("WebSocket client connected",
		zap.String("remote_addr", r.RemoteAddr),
	)
}

// registerClient는 클라이언트를 등록합니다
func (s *Server) registerClient(client *Client) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.clients[client] = true

	s.logger.Debug("Client registered",
		zap.String("client_id", client.id),
		zap.Int("total_clients", len(s.clients)),
	)
}

// unregisterClient는 클라이언트를 등록 해제합니다
func (s *Server) unregisterClient(client *Client) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.clients[client]; exists {
		delete(s.clients, client)
		close(client.send)

		s.logger.Info("Client unregistered",
			zap.String("client_id", client.id),
			zap.Int("total_clients", len(s.clients)),
		)
	}
}

// Broadcast는 모든 클라이언트에 메시지를 전송합니다. 버퍼가 찬 클라이언트는 건너뜁니다
func (s *Server) Broadcast(msgType string, payload any) {
	data, err := encode(msgType, payload)
	if err != nil {
		s.logger.Error("Failed to marshal broadcast", zap.String("type", msgType), zap.Error(err))
		return
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			client.logger.Warn("Send channel full, dropping message", zap.String("type", msgType))
		}
	}
}

// BroadcastCameraUpdate는 카메라 상태 변경을 전송합니다
func (s *Server) BroadcastCameraUpdate(cam *device.Camera) {
	data := cam.Data()
	s.Broadcast(TypeCameraUpdate, CameraPayload{
		ID:         cam.ID(),
		Name:       data.Description,
		Doorbot:    cam.IsDoorbot(),
		LocationID: data.LocationID,
		Data:       data,
	})
}

// BroadcastDing은 새 ding을 전송합니다
func (s *Server) BroadcastDing(cam *device.Camera, ding client.ActiveDing) {
	s.Broadcast(TypeDing, DingPayload{
		CameraID:   cam.ID(),
		CameraName: cam.Name(),
		Ding:       ding,
		ReceivedAt: time.Now().UTC(),
	})
}

// readPump은 WebSocket에서 메시지를 읽습니다
func (c *Client) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump은 WebSocket으로 메시지를 씁니다
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.logger.Error("Failed to write message", zap.Error(err))
			break
		}
	}
}

// handleMessage는 클라이언트 메시지를 처리합니다
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("Failed to parse message", zap.Error(err))
		c.SendError("invalid message")
		return
	}

	c.logger.Debug("Received message",
		zap.String("type", msg.Type),
	)

	switch msg.Type {
	case TypeRefresh:
		var payload RefreshPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.CameraID == 0 {
			c.SendError("refresh requires cameraId")
			return
		}
		c.handleRefresh(payload.CameraID)
	default:
		c.logger.Warn("Unknown message type", zap.String("type", msg.Type))
		c.SendError("unknown message type: " + msg.Type)
	}
}

// handleRefresh는 카메라 상태 갱신 요청을 처리합니다
func (c *Client) handleRefresh(cameraID int64) {
	if c.server.onRefresh == nil {
		c.SendError("refresh not supported")
		return
	}

	if err := c.server.onRefresh(cameraID); err != nil {
		c.logger.Warn("Refresh rejected", zap.Int64("camera_id", cameraID), zap.Error(err))
		c.SendError(err.Error())
		return
	}

	c.sendMessage(TypeRefreshAccepted, RefreshPayload{CameraID: cameraID})
}

// SendError는 에러 메시지를 전송합니다
func (c *Client) SendError(errorMsg string) {
	c.sendMessage(TypeError, errorMsg)
}

func (c *Client) sendMessage(msgType string, payload any) {
	data, err := encode(msgType, payload)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.String("type", msgType), zap.Error(err))
		return
	}

	// 등록 해제된 클라이언트의 send 채널은 닫혀 있음
	c.server.mutex.RLock()
	defer c.server.mutex.RUnlock()
	if !c.server.clients[c] {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Error("Send channel full, dropping message", zap.String("type", msgType))
	}
}

func encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Payload: raw})
}

// GetID는 클라이언트 ID를 반환합니다
func (c *Client) GetID() string {
	return c.id
}

// GetClientCount는 연결된 클라이언트 수를 반환합니다
func (s *Server) GetClientCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.clients)
}

// Close는 모든 클라이언트 연결을 종료합니다
func (s *Server) Close() {
	s.logger.Info("Closing websocket hub")

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for client := range s.clients {
		client.conn.Close()
		delete(s.clients, client)
		close(client.send)
	}
}
