// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// CapabilityRepository 服务能力仓储
type CapabilityRepository struct {
	db DB
}

// NewCapabilityRepository 创建服务能力仓储
func NewCapabilityRepository(db DB) *CapabilityRepository {
	return &CapabilityRepository{db: db}
}

// Create 创建服务能力
func (r *CapabilityRepository) Create(ctx context.Context, cap *model.Capability) error {
	if cap.ID == uuid.Nil {
		cap.ID = uuid.New()
	}
	now := time.Now()
	cap.CreatedAt = now
	cap.UpdatedAt = now

	query := `
		INSERT INTO capabilities (id, name, category, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		cap.ID, cap.Name, cap.Category, cap.IsActive, cap.CreatedAt, cap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建服务能力失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取服务能力
func (r *CapabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Capability, error) {
	query := `
		SELECT id, name, category, is_active, created_at, updated_at
		FROM capabilities
		WHERE id = $1 AND deleted_at IS NULL
	`

	cap := &model.Capability{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cap.ID, &cap.Name, &cap.Category, &cap.IsActive, &cap.CreatedAt, &cap.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描服务能力失败: %w", err)
	}

	return cap, nil
}

// ListAll 获取全部服务能力
func (r *CapabilityRepository) ListAll(ctx context.Context) ([]*model.Capability, error) {
	query := `
		SELECT id, name, category, is_active, created_at, updated_at
		FROM capabilities
		WHERE deleted_at IS NULL
		ORDER BY category, name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询服务能力失败: %w", err)
	}
	defer rows.Close()

	var caps []*model.Capability
	for rows.Next() {
		cap := &model.Capability{}
		err := rows.Scan(&cap.ID, &cap.Name, &cap.Category, &cap.IsActive, &cap.CreatedAt, &cap.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("扫描服务能力失败: %w", err)
		}
		caps = append(caps, cap)
	}

	return caps, nil
}

// SetActive 启用/停用服务能力
func (r *CapabilityRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE capabilities SET is_active = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("更新服务能力失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("服务能力不存在")
	}

	return nil
}
