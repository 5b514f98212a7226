package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/client"
)

// Ding은 기록된 ding 이벤트를 나타냅니다
type Ding struct {
	ID         string    `json:"id"`
	CameraID   int64     `json:"camera_id"`
	CameraName string    `json:"camera_name"`
	Kind       string    `json:"kind"`
	State      string    `json:"state"`
	Motion     bool      `json:"motion"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewDing은 active ding으로부터 기록용 Ding을 만듭니다
func NewDing(cameraName string, d client.ActiveDing, at time.Time) *Ding {
	return &Ding{
		ID:         d.Key(),
		CameraID:   d.DoorbotID,
		CameraName: cameraName,
		Kind:       d.Kind,
		State:      d.State,
		Motion:     d.Motion,
		CreatedAt:  at,
	}
}

// DingRepository는 ding 로그 데이터 액세스 레이어입니다
type DingRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDingRepository는 새로운 DingRepository를 생성합니다
func NewDingRepository(db *DB, logger *zap.Logger) *DingRepository {
	return &DingRepository{
		db:     db,
		logger: logger,
	}
}

// Insert는 ding을 기록합니다. 이미 있는 id면 무시하고 false를 반환합니다
func (r *DingRepository) Insert(ctx context.Context, ding *Ding) (bool, error) {
	query := `
		INSERT OR IGNORE INTO dings (id, camera_id, camera_name, kind, state, motion, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Conn().ExecContext(ctx,
		query,
		ding.ID,
		ding.CameraID,
		ding.CameraName,
		ding.Kind,
		ding.State,
		ding.Motion,
		ding.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert ding: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	r.logger.Debug("Ding recorded",
		zap.String("id", ding.ID),
		zap.Int64("camera_id", ding.CameraID),
		zap.String("kind", ding.Kind),
	)
	return true, nil
}

// ListRecent는 최근 ding을 최신순으로 조회합니다
func (r *DingRepository) ListRecent(ctx context.Context, limit int) ([]*Ding, error) {
	query := `
		SELECT id, camera_id, camera_name, kind, state, motion, created_at
		FROM dings
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	return r.query(ctx, query, limit)
}

// ListByCamera는 특정 카메라의 최근 ding을 조회합니다
func (r *DingRepository) ListByCamera(ctx context.Context, cameraID int64, limit int) ([]*Ding, error) {
	query := `
		SELECT id, camera_id, camera_name, kind, state, motion, created_at
		FROM dings
		WHERE camera_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	return r.query(ctx, query, cameraID, limit)
}

// CountByCamera는 카메라별 ding 개수를 반환합니다
func (r *DingRepository) CountByCamera(ctx context.Context, cameraID int64) (int, error) {
	var count int
	err := r.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM dings WHERE camera_id = ?", cameraID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count dings: %w", err)
	}
	return count, nil
}

// DeleteBefore는 지정 시각 이전의 ding을 삭제합니다
func (r *DingRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.Conn().ExecContext(ctx, "DELETE FROM dings WHERE created_at < ?", before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete dings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows > 0 {
		r.logger.Info("Old dings deleted", zap.Int64("count", rows))
	}
	return rows, nil
}

func (r *DingRepository) query(ctx context.Context, query string, args ...any) ([]*Ding, error) {
	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dings: %w", err)
	}
	defer rows.Close()

	var dings []*Ding
	for rows.Next() {
		ding := &Ding{}
		var createdAt int64
		err := rows.Scan(
			&ding.ID,
			&ding.CameraID,
			&ding.CameraName,
			&ding.Kind,
			&ding.State,
			&ding.Motion,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ding: %w", err)
		}
		ding.CreatedAt = time.UnixMilli(createdAt).UTC()
		dings = append(dings, ding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dings: %w", err)
	}

	return dings, nil
}
