package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenStore는 갱신된 refresh token과 hardware id를 파일에 보관합니다
type TokenStore struct {
	state    tokenState
	mu       sync.RWMutex
	filePath string
	logger   *zap.Logger
}

type tokenState struct {
	RefreshToken string    `json:"refreshToken,omitempty"`
	HardwareID   string    `json:"hardwareId"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewTokenStore는 새로운 TokenStore를 생성합니다
func NewTokenStore(filePath string, logger *zap.Logger) *TokenStore {
	store := &TokenStore{
		filePath: filePath,
		logger:   logger,
	}

	// 저장된 토큰 로드 시도
	if err := store.LoadFromFile(); err != nil {
		logger.Warn("Failed to load token file, starting fresh", zap.Error(err))
	}

	return store
}

// RefreshToken은 저장된 refresh token을 반환합니다
func (ts *TokenStore) RefreshToken() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.state.RefreshToken
}

// HardwareID는 hardware id를 반환합니다. 없으면 생성 후 저장합니다
func (ts *TokenStore) HardwareID() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.state.HardwareID != "" {
		return ts.state.HardwareID, nil
	}

	ts.state.HardwareID = uuid.NewString()
	if err := ts.saveToFileUnsafe(); err != nil {
		return "", fmt.Errorf("failed to save hardware id: %w", err)
	}

	ts.logger.Info("Hardware id generated", zap.String("hardware_id", ts.state.HardwareID))
	return ts.state.HardwareID, nil
}

// SaveRefreshToken은 갱신된 refresh token을 저장합니다
func (ts *TokenStore) SaveRefreshToken(token string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if token == "" || token == ts.state.RefreshToken {
		return nil
	}

	ts.state.RefreshToken = token
	if err := ts.saveToFileUnsafe(); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	ts.logger.Info("Refresh token updated")
	return nil
}

// LoadFromFile은 토큰 파일을 로드합니다
func (ts *TokenStore) LoadFromFile() error {
	data, err := os.ReadFile(ts.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// 파일이 없으면 정상 (처음 실행)
			return nil
		}
		return fmt.Errorf("failed to read token file: %w", err)
	}

	var state tokenState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse token file: %w", err)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.state = state

	ts.logger.Info("Token file loaded", zap.Bool("has_refresh_token", state.RefreshToken != ""))
	return nil
}

// saveToFileUnsafe는 mutex 없이 파일에 저장합니다 (내부용)
func (ts *TokenStore) saveToFileUnsafe() error {
	ts.state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(ts.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token file: %w", err)
	}

	if dir := filepath.Dir(ts.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	// 임시 파일에 쓴 후 교체
	tmp := ts.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, ts.filePath); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}
