package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/account"
	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/database"
	"github.com/yourusername/ringwatch/internal/device"
)

const (
	defaultHistoryLimit = 10
	defaultDingLimit    = 50
	maxLimit            = 500
	shutdownTimeout     = 5 * time.Second
)

// DingStore는 ding 로그 조회 인터페이스입니다
type DingStore interface {
	ListRecent(ctx context.Context, limit int) ([]*database.Ding, error)
	ListByCamera(ctx context.Context, cameraID int64, limit int) ([]*database.Ding, error)
}

// Server는 HTTP API 서버입니다
type Server struct {
	logger     *zap.Logger
	httpServer *http.Server
	router     *gin.Engine
	port       int

	provider account.Provider
	dings    DingStore

	// 핸들러
	healthHandler    func() map[string]any
	metricsHandler   http.Handler
	websocketHandler func(http.ResponseWriter, *http.Request)
}

// ServerConfig는 API 서버 설정
type ServerConfig struct {
	Port       int
	Production bool
	Logger     *zap.Logger

	Provider account.Provider
	// Dings가 nil이면 /api/v1/dings는 503을 반환
	Dings DingStore

	HealthHandler    func() map[string]any
	MetricsHandler   http.Handler
	WebSocketHandler func(http.ResponseWriter, *http.Request)
}

// NewServer는 새로운 API 서버를 생성합니다
func NewServer(config ServerConfig) *Server {
	if !config.Production {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(loggerMiddleware(config.Logger))

	server := &Server{
		logger:           config.Logger,
		router:           router,
		port:             config.Port,
		provider:         config.Provider,
		dings:            config.Dings,
		healthHandler:    config.HealthHandler,
		metricsHandler:   config.MetricsHandler,
		websocketHandler: config.WebSocketHandler,
	}

	server.setupRoutes()

	return server
}

// setupRoutes는 라우트를 설정합니다
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/locations", s.handleLocations)
		v1.GET("/cameras", s.handleCameras)
		v1.GET("/cameras/:id", s.handleCamera)
		v1.POST("/cameras/:id/refresh", s.handleRefresh)
		v1.GET("/history", s.handleHistory)
		v1.GET("/dings", s.handleDings)
	}

	if s.metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(s.metricsHandler))
	}

	// WebSocket 허브
	if s.websocketHandler != nil {
		s.router.GET("/ws", gin.WrapF(s.websocketHandler))
	}
}

// Handler는 라우터를 반환합니다
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start는 API 서버를 시작합니다
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server",
		zap.String("addr", addr),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop은 API 서버를 종료합니다
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

type locationView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	HasHubDevice bool    `json:"has_hub_device"`
	CameraIDs    []int64 `json:"camera_ids"`
}

type cameraView struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Doorbot     bool                `json:"doorbot"`
	LocationID  string              `json:"location_id"`
	Data        client.CameraData   `json:"data"`
	ActiveDings []client.ActiveDing `json:"active_dings"`
}

func newCameraView(cam *device.Camera) cameraView {
	data := cam.Data()
	return cameraView{
		ID:          cam.ID(),
		Name:        data.Description,
		Doorbot:     cam.IsDoorbot(),
		LocationID:  data.LocationID,
		Data:        data,
		ActiveDings: cam.ActiveDings(),
	}
}

// handleHealth는 헬스 체크를 처리합니다
func (s *Server) handleHealth(c *gin.Context) {
	health := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	}

	if s.healthHandler != nil {
		for k, v := range s.healthHandler() {
			health[k] = v
		}
	}

	c.JSON(http.StatusOK, health)
}

// handleLocations는 location 목록을 반환합니다
func (s *Server) handleLocations(c *gin.Context) {
	locations, err := s.provider.Locations(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	views := make([]locationView, 0, len(locations))
	for _, loc := range locations {
		view := locationView{
			ID:           loc.ID(),
			Name:         loc.Name(),
			HasHubDevice: loc.HasHubDevice(),
			CameraIDs:    []int64{},
		}
		for _, cam := range loc.Cameras() {
			view.CameraIDs = append(view.CameraIDs, cam.ID())
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"locations": views,
	})
}

// handleCameras는 카메라 목록을 반환합니다
func (s *Server) handleCameras(c *gin.Context) {
	cameras, err := s.provider.Cameras(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	views := make([]cameraView, 0, len(cameras))
	for _, cam := range cameras {
		views = append(views, newCameraView(cam))
	}

	c.JSON(http.StatusOK, gin.H{
		"cameras": views,
	})
}

// handleCamera는 단일 카메라를 반환합니다
func (s *Server) handleCamera(c *gin.Context) {
	cam, ok := s.lookupCamera(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newCameraView(cam))
}

// handleRefresh는 카메라 상태 갱신을 요청합니다
func (s *Server) handleRefresh(c *gin.Context) {
	cam, ok := s.lookupCamera(c)
	if !ok {
		return
	}

	cam.RequestUpdate()
	c.JSON(http.StatusAccepted, gin.H{
		"camera_id": cam.ID(),
		"status":    "refresh requested",
	})
}

// handleHistory는 이벤트 히스토리를 반환합니다
func (s *Server) handleHistory(c *gin.Context) {
	limit, ok := parseLimit(c, defaultHistoryLimit)
	if !ok {
		return
	}
	favorites, _ := strconv.ParseBool(c.DefaultQuery("favorites", "false"))

	events, err := s.provider.History(c.Request.Context(), limit, favorites)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if events == nil {
		events = []client.HistoryEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
	})
}

// handleDings는 기록된 ding 목록을 반환합니다
func (s *Server) handleDings(c *gin.Context) {
	if s.dings == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ding log is disabled"})
		return
	}

	limit, ok := parseLimit(c, defaultDingLimit)
	if !ok {
		return
	}

	var (
		dings []*database.Ding
		err   error
	)
	if raw := c.Query("camera_id"); raw != "" {
		cameraID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera_id"})
			return
		}
		dings, err = s.dings.ListByCamera(c.Request.Context(), cameraID, limit)
	} else {
		dings, err = s.dings.ListRecent(c.Request.Context(), limit)
	}
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if dings == nil {
		dings = []*database.Ding{}
	}

	c.JSON(http.StatusOK, gin.H{
		"dings": dings,
	})
}

func (s *Server) lookupCamera(c *gin.Context) (*device.Camera, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid camera id"})
		return nil, false
	}

	cam, err := s.provider.Camera(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, err)
		return nil, false
	}
	return cam, true
}

func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxLimit)})
		return 0, false
	}
	return limit, true
}

// abortWithError는 에러를 HTTP 상태 코드로 변환합니다
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, account.ErrCameraNotFound):
		status = http.StatusNotFound
	case errors.Is(err, account.ErrTopology), errors.Is(err, account.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, client.ErrNotAuthenticated), errors.Is(err, client.ErrTwoFactorRequired):
		status = http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		var statusErr *client.StatusError
		if errors.As(err, &statusErr) {
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Warn("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// corsMiddleware는 CORS 미들웨어입니다
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// loggerMiddleware는 로깅 미들웨어입니다
func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
