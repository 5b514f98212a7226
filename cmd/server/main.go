package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/account"
	"github.com/yourusername/ringwatch/internal/api"
	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/core"
	"github.com/yourusername/ringwatch/internal/database"
	"github.com/yourusername/ringwatch/internal/device"
	"github.com/yourusername/ringwatch/internal/hub"
	"github.com/yourusername/ringwatch/internal/metrics"
	"github.com/yourusername/ringwatch/internal/mqtt"
	"github.com/yourusername/ringwatch/pkg/logger"
)

const (
	defaultConfigPath = "configs/config.yaml"
	version           = "0.1.0"

	startupTimeout = 60 * time.Second
	sinkTimeout    = 5 * time.Second
)

func main() {
	// 커맨드라인 플래그 파싱
	configPath := flag.String("config", defaultConfigPath, "설정 파일 경로")
	showVersion := flag.Bool("version", false, "버전 정보 출력")
	flag.Parse()

	// 버전 정보 출력
	if *showVersion {
		fmt.Printf("ringwatch v%s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// 설정 로드
	config, err := core.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 로거 초기화
	if err := logger.InitLogger(logger.LogConfig{
		Level:      config.Logging.Level,
		Output:     config.Logging.Output,
		FilePath:   config.Logging.FilePath,
		MaxSize:    config.Logging.MaxSize,
		MaxBackups: config.Logging.MaxBackups,
		MaxAge:     config.Logging.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// 시작 로그
	logger.Info("Starting ringwatch",
		zap.String("version", version),
		zap.String("go_version", runtime.Version()),
	)

	// 설정 정보 출력
	logger.Info("Server configuration",
		zap.Int("http_port", config.Server.HTTPPort),
		zap.Bool("production", config.Server.Production),
		zap.Strings("location_ids", config.Ring.LocationIDs),
		zap.Int("camera_status_polling_seconds", config.Ring.CameraStatusPollingSeconds),
		zap.Int("camera_dings_polling_seconds", config.Ring.CameraDingsPollingSeconds),
		zap.Bool("metrics", config.Metrics.Enabled),
		zap.Bool("database", config.Database.Enabled),
		zap.Bool("mqtt", config.MQTT.Enabled),
	)

	// 서버 컴포넌트 초기화
	app, err := initializeApplication(config)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer app.cleanup()

	logger.Info("All components initialized successfully")

	// location graph 로드 (실패해도 API는 503으로 응답)
	app.loadAccount()

	// 종료 시그널 대기
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	logger.Info("Received shutdown signal",
		zap.String("signal", sig.String()),
	)
}

// Application은 애플리케이션 컴포넌트들을 관리합니다
type Application struct {
	config     *core.Config
	tokenStore *core.TokenStore
	apiClient  *client.APIClient
	account    *account.Account
	registry   *prometheus.Registry
	db         *database.DB
	dings      *database.DingRepository
	publisher  *mqtt.Publisher
	hub        *hub.Server
	apiServer  *api.Server
}

// initializeApplication은 애플리케이션을 초기화합니다
func initializeApplication(config *core.Config) (*Application, error) {
	app := &Application{config: config}

	// 1. 토큰 저장소 초기화
	app.tokenStore = core.NewTokenStore(config.Ring.TokenFile, logger.Named("token"))
	hardwareID, err := app.tokenStore.HardwareID()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare hardware id: %w", err)
	}

	// 저장된 토큰이 설정 파일의 토큰보다 최신
	refreshToken := config.Ring.RefreshToken
	if stored := app.tokenStore.RefreshToken(); stored != "" {
		refreshToken = stored
	}

	// 2. Ring API 클라이언트 초기화
	app.apiClient = client.NewAPIClient(client.Config{
		Email:          config.Ring.Email,
		Password:       config.Ring.Password,
		RefreshToken:   refreshToken,
		TwoFactorCode:  config.Ring.TwoFactorCode,
		HardwareID:     hardwareID,
		RequestTimeout: config.Ring.RequestTimeoutDuration(),
		Logger:         logger.Named("client"),
		OnTokenRefreshed: func(token string) {
			if err := app.tokenStore.SaveRefreshToken(token); err != nil {
				logger.Error("Failed to persist refresh token", zap.Error(err))
			}
		},
	})
	logger.Info("Ring API client initialized")

	// 3. 메트릭 초기화
	var poller *metrics.Poller
	var metricsHandler http.Handler
	if config.Metrics.Enabled {
		app.registry = prometheus.NewRegistry()
		app.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		poller = metrics.NewPoller(app.registry)
		metricsHandler = promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{})
		logger.Info("Metrics initialized")
	}

	// 4. ding 로그 초기화
	var dingStore api.DingStore
	if config.Database.Enabled {
		app.db, err = database.New(config.Database.Path, logger.Named("database"))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		app.dings = database.NewDingRepository(app.db, logger.Named("dings"))
		dingStore = app.dings
	}

	// 5. MQTT 초기화 (연결 실패 시 MQTT 없이 계속)
	if config.MQTT.Enabled {
		app.publisher, err = mqtt.Connect(mqtt.Config{
			Host:        config.MQTT.Host,
			Port:        config.MQTT.Port,
			ClientID:    config.MQTT.ClientID,
			Username:    config.MQTT.Username,
			Password:    config.MQTT.Password,
			TopicPrefix: config.MQTT.TopicPrefix,
			QoS:         config.MQTT.QoS,
			Logger:      logger.Named("mqtt"),
		})
		if err != nil {
			logger.Error("MQTT unavailable, continuing without it", zap.Error(err))
			app.publisher = nil
		}
	}

	// 6. WebSocket 허브 초기화
	app.hub = hub.NewServer(hub.ServerConfig{
		Logger:    logger.Named("hub"),
		OnRefresh: app.requestRefresh,
	})

	// 7. 계정 초기화
	app.account = account.New(account.Config{
		API: app.apiClient,
		Options: account.Options{
			LocationIDs:                 config.Ring.LocationIDs,
			CameraStatusPollingInterval: config.Ring.StatusPollingInterval(),
			CameraDingsPollingInterval:  config.Ring.DingsPollingInterval(),
		},
		Logger:  logger.Named("account"),
		Metrics: poller,
		OnReady: app.attachListeners,
	})

	// 8. API 서버 초기화
	app.apiServer = api.NewServer(api.ServerConfig{
		Port:       config.Server.HTTPPort,
		Production: config.Server.Production,
		Logger:     logger.Named("api"),
		Provider:   app.account,
		Dings:      dingStore,
		HealthHandler: func() map[string]any {
			tracked, ready := app.account.TrackedCameras()
			return map[string]any{
				"version":         version,
				"account_ready":   ready,
				"tracked_cameras": tracked,
				"ws_clients":      app.hub.GetClientCount(),
				"mqtt":            app.publisher != nil,
			}
		},
		MetricsHandler:   metricsHandler,
		WebSocketHandler: app.hub.HandleWebSocket,
	})

	if err := app.apiServer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start API server: %w", err)
	}

	return app, nil
}

// loadAccount는 location graph를 미리 로드합니다
func (app *Application) loadAccount() {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	locations, err := app.account.Locations(ctx)
	if err != nil {
		logger.Error("Failed to load locations", zap.Error(err))
		return
	}

	for _, loc := range locations {
		logger.Info("Location loaded",
			zap.String("location_id", loc.ID()),
			zap.String("name", loc.Name()),
			zap.Bool("has_hub_device", loc.HasHubDevice()),
			zap.Int("cameras", len(loc.Cameras())),
		)
	}
}

// attachListeners는 카메라 이벤트를 허브, ding 로그, MQTT로 연결합니다
func (app *Application) attachListeners(locations []*device.Location) {
	for _, loc := range locations {
		for _, cam := range loc.Cameras() {
			cam.OnData(func(c *device.Camera, _ client.CameraData) {
				app.hub.BroadcastCameraUpdate(c)
				app.publishState(c)
			})
			cam.OnDing(app.handleDing)

			// 초기 상태 게시
			app.publishState(cam)
		}
	}
}

func (app *Application) publishState(cam *device.Camera) {
	if app.publisher == nil {
		return
	}
	if err := app.publisher.PublishCameraState(cam); err != nil {
		logger.Named("mqtt").Warn("Failed to publish camera state",
			zap.Int64("camera_id", cam.ID()),
			zap.Error(err),
		)
	}
}

// handleDing은 새 ding을 전달합니다
func (app *Application) handleDing(cam *device.Camera, ding client.ActiveDing) {
	logger.Info("Ding received",
		zap.Int64("camera_id", cam.ID()),
		zap.String("camera", cam.Name()),
		zap.String("kind", ding.Kind),
		zap.String("ding_id", ding.Key()),
	)

	app.hub.BroadcastDing(cam, ding)

	if app.dings != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if _, err := app.dings.Insert(ctx, database.NewDing(cam.Name(), ding, time.Now().UTC())); err != nil {
			logger.Error("Failed to record ding", zap.Error(err))
		}
		cancel()
	}

	if app.publisher != nil {
		if err := app.publisher.PublishDing(cam, ding); err != nil {
			logger.Named("mqtt").Warn("Failed to publish ding", zap.Error(err))
		}
	}
}

// requestRefresh는 WebSocket refresh 요청을 처리합니다
func (app *Application) requestRefresh(cameraID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	cam, err := app.account.Camera(ctx, cameraID)
	if err != nil {
		return err
	}
	cam.RequestUpdate()
	return nil
}

// cleanup은 애플리케이션 리소스를 정리합니다
func (app *Application) cleanup() {
	logger.Info("Cleaning up application resources")

	if app.apiServer != nil {
		if err := app.apiServer.Stop(); err != nil {
			logger.Error("Failed to stop API server", zap.Error(err))
		}
	}

	if app.hub != nil {
		app.hub.Close()
	}

	if app.account != nil {
		app.account.Close()
	}

	if app.publisher != nil {
		app.publisher.Close()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}

	logger.Info("Cleanup completed")
}
