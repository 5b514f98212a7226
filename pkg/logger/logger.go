package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log는 전역 로거 인스턴스
	Log *zap.Logger
	// level은 런타임에 변경 가능한 로그 레벨
	level = zap.NewAtomicLevel()
	// fileWriter는 현재 파일 writer
	fileWriter *dailyWriter
)

// LogConfig는 로거 설정
type LogConfig struct {
	Level      string
	Output     string // console, file, both
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// InitLogger는 zap 로거를 초기화합니다
func InitLogger(cfg LogConfig) error {
	if err := SetLevel(cfg.Level); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	consoleConfig := zap.NewProductionEncoderConfig()
	consoleConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileConfig := zap.NewProductionEncoderConfig()
	fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(os.Stdout), level)

	var core zapcore.Core
	switch cfg.Output {
	case "file", "both":
		// 로그 디렉토리 생성
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		fileWriter = newDailyWriter(cfg, time.Now)
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(fileWriter), level)

		if cfg.Output == "both" {
			core = zapcore.NewTee(consoleCore, fileCore)
		} else {
			core = fileCore
		}
	default:
		core = consoleCore
	}

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

// SetLevel은 로그 레벨을 변경합니다
func SetLevel(name string) error {
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(parsed)
	return nil
}

// Named는 컴포넌트 이름이 붙은 하위 로거를 반환합니다
func Named(component string) *zap.Logger {
	if Log == nil {
		return zap.NewNop()
	}
	return Log.Named(component)
}

// dailyWriter는 날짜가 바뀌면 새 로그 파일로 전환하는 writer
// 예: logs/ringwatch.log -> logs/ringwatch-2025-11-17.log
type dailyWriter struct {
	cfg LogConfig
	now func() time.Time

	mu  sync.Mutex
	day string
	out *lumberjack.Logger
}

func newDailyWriter(cfg LogConfig, now func() time.Time) *dailyWriter {
	return &dailyWriter{cfg: cfg, now: now}
}

// Write는 현재 날짜의 파일에 기록합니다
func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := w.now().Format("2006-01-02")
	if w.out == nil || today != w.day {
		if w.out != nil {
			_ = w.out.Close()
		}
		w.day = today
		w.out = &lumberjack.Logger{
			Filename:   dailyFilePath(w.cfg.FilePath, today),
			MaxSize:    w.cfg.MaxSize,    // MB
			MaxBackups: w.cfg.MaxBackups, // 보관할 최대 파일 개수
			MaxAge:     w.cfg.MaxAge,     // 일 단위
			LocalTime:  true,
			Compress:   true,
		}
	}

	return w.out.Write(p)
}

// Close는 현재 파일을 닫습니다
func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.out == nil {
		return nil
	}
	err := w.out.Close()
	w.out = nil
	return err
}

// dailyFilePath는 날짜를 포함한 로그 파일 경로를 생성합니다
func dailyFilePath(basePath, day string) string {
	ext := filepath.Ext(basePath)
	nameWithoutExt := strings.TrimSuffix(basePath, ext)
	return fmt.Sprintf("%s-%s%s", nameWithoutExt, day, ext)
}

// Close는 로거를 종료하고 리소스를 정리합니다
func Close() {
	Sync()
	if fileWriter != nil {
		_ = fileWriter.Close()
	}
}

// Sync는 로거 버퍼를 플러시합니다
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// Info는 info 레벨 로그를 출력합니다
func Info(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Info(msg, fields...)
	}
}

// Error는 error 레벨 로그를 출력합니다
func Error(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Error(msg, fields...)
	}
}

// Fatal는 fatal 레벨 로그를 출력하고 프로그램을 종료합니다
func Fatal(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Fatal(msg, fields...)
	}
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
