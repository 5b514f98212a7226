package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DB는 데이터베이스 연결을 관리합니다
type DB struct {
	conn   *sql.DB
	logger *zap.Logger
}

// New는 새로운 데이터베이스 연결을 생성합니다
func New(dbPath string, logger *zap.Logger) (*DB, error) {
	// 데이터베이스 디렉토리 생성
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// SQLite 연결 열기
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite는 단일 writer
	conn.SetMaxOpenConns(1)

	// 연결 테스트
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger,
	}

	// 테이블 초기화
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database initialized successfully",
		zap.String("path", dbPath),
	)

	return db, nil
}

// migrate는 데이터베이스 스키마를 초기화합니다
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dings (
		id TEXT PRIMARY KEY,
		camera_id INTEGER NOT NULL,
		camera_name TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT '',
		motion BOOLEAN NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dings_camera_id ON dings(camera_id);
	CREATE INDEX IF NOT EXISTS idx_dings_created_at ON dings(created_at);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	db.logger.Debug("Database schema migrated")
	return nil
}

// Close는 데이터베이스 연결을 닫습니다
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn은 기본 SQL 연결을 반환합니다
func (db *DB) Conn() *sql.DB {
	return db.conn
}
