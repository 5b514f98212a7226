package core

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config는 전체 애플리케이션 설정을 담는 구조체
type Config struct {
	Ring     RingConfig     `yaml:"ring"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

type RingConfig struct {
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`
	RefreshToken  string `yaml:"refresh_token"`
	TwoFactorCode string `yaml:"two_factor_code"`

	// nil이면 모든 location 사용, 빈 리스트면 아무 것도 사용하지 않음
	LocationIDs []string `yaml:"location_ids"`

	CameraStatusPollingSeconds int `yaml:"camera_status_polling_seconds"`
	CameraDingsPollingSeconds  int `yaml:"camera_dings_polling_seconds"`
	RequestTimeout             int `yaml:"request_timeout"` // API 요청 타임아웃 (초)

	TokenFile string `yaml:"token_file"`
}

type ServerConfig struct {
	HTTPPort   int  `yaml:"http_port"`
	Production bool `yaml:"production"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// 환경 변수로 덮어쓸 수 있는 값
const (
	EnvRefreshToken = "RING_REFRESH_TOKEN"
	EnvEmail        = "RING_EMAIL"
	EnvPassword     = "RING_PASSWORD"
)

// LoadConfig는 YAML 파일에서 설정을 로드합니다
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()

	// 설정 검증
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// DefaultConfig는 기본값이 채워진 설정을 반환합니다
func DefaultConfig() *Config {
	return &Config{
		Ring: RingConfig{
			RequestTimeout: 30,
			TokenFile:      "ring_token.json",
		},
		Server: ServerConfig{
			HTTPPort: 8080,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     "console",
			FilePath:   "logs/ringwatch.log",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
		Database: DatabaseConfig{
			Path: "ringwatch.db",
		},
		MQTT: MQTTConfig{
			Port:        1883,
			ClientID:    "ringwatch",
			TopicPrefix: "ring",
		},
	}
}

// applyEnv는 환경 변수 값으로 인증 정보를 덮어씁니다
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRefreshToken); v != "" {
		c.Ring.RefreshToken = v
	}
	if v := os.Getenv(EnvEmail); v != "" {
		c.Ring.Email = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Ring.Password = v
	}
}

// Validate는 설정값의 유효성을 검증합니다
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}

	if c.Ring.RefreshToken == "" && (c.Ring.Email == "" || c.Ring.Password == "") {
		return errors.New("ring.refresh_token or ring.email and ring.password must be set")
	}

	if c.Ring.CameraStatusPollingSeconds < 0 {
		return fmt.Errorf("invalid camera_status_polling_seconds: %d", c.Ring.CameraStatusPollingSeconds)
	}

	if c.Ring.CameraDingsPollingSeconds < 0 {
		return fmt.Errorf("invalid camera_dings_polling_seconds: %d", c.Ring.CameraDingsPollingSeconds)
	}

	if c.Ring.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database.path is required when database is enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			return fmt.Errorf("mqtt.host is required when mqtt is enabled")
		}
		if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
			return fmt.Errorf("invalid mqtt.port: %d", c.MQTT.Port)
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("invalid mqtt.qos: %d", c.MQTT.QoS)
		}
	}

	return nil
}

// StatusPollingInterval은 카메라 상태 폴링 주기를 반환합니다 (0이면 비활성)
func (r RingConfig) StatusPollingInterval() time.Duration {
	return time.Duration(r.CameraStatusPollingSeconds) * time.Second
}

// DingsPollingInterval은 ding 폴링 주기를 반환합니다 (0이면 비활성)
func (r RingConfig) DingsPollingInterval() time.Duration {
	return time.Duration(r.CameraDingsPollingSeconds) * time.Second
}

// RequestTimeoutDuration은 API 요청 타임아웃을 반환합니다
func (r RingConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(r.RequestTimeout) * time.Second
}
