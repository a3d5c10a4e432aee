// Package repository 提供数据访问层
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// ScheduleRepository 排班行仓储
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository 创建排班行仓储
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, org_id, customer_id, caregiver_id, date, start_time, end_time,
		units, status, generated_by, created_at, updated_at`

// ListWeek 获取组织在某日期段内的全部排班行
func (r *ScheduleRepository) ListWeek(ctx context.Context, orgID uuid.UUID, startDate, endDate string) ([]*model.ScheduleRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM schedule_rows
		WHERE org_id = $1 AND date >= $2 AND date <= $3 AND deleted_at IS NULL
		ORDER BY date, caregiver_id, start_time
	`, scheduleColumns)

	rows, err := r.db.QueryContext(ctx, query, orgID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询排班行失败: %w", err)
	}
	defer rows.Close()

	var result []*model.ScheduleRow
	for rows.Next() {
		row := &model.ScheduleRow{}
		err := rows.Scan(
			&row.ID, &row.OrgID, &row.CustomerID, &row.CaregiverID, &row.Date,
			&row.StartTime, &row.EndTime, &row.Units, &row.Status, &row.GeneratedBy,
			&row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描排班行失败: %w", err)
		}
		result = append(result, row)
	}

	return result, nil
}

// ListForCaregiver 获取某护理员在日期段内的排班行
func (r *ScheduleRepository) ListForCaregiver(ctx context.Context, caregiverID uuid.UUID, startDate, endDate string) ([]*model.ScheduleRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM schedule_rows
		WHERE caregiver_id = $1 AND date >= $2 AND date <= $3 AND deleted_at IS NULL
		ORDER BY date, start_time
	`, scheduleColumns)

	rows, err := r.db.QueryContext(ctx, query, caregiverID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询护理员排班失败: %w", err)
	}
	defer rows.Close()

	var result []*model.ScheduleRow
	for rows.Next() {
		row := &model.ScheduleRow{}
		err := rows.Scan(
			&row.ID, &row.OrgID, &row.CustomerID, &row.CaregiverID, &row.Date,
			&row.StartTime, &row.EndTime, &row.Units, &row.Status, &row.GeneratedBy,
			&row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描排班行失败: %w", err)
		}
		result = append(result, row)
	}

	return result, nil
}

// InsertRows 批量写入排班行
// 调用方可传入事务句柄以保证原子性
func (r *ScheduleRepository) InsertRows(ctx context.Context, db DB, scheduleRows []*model.ScheduleRow) error {
	query := `
		INSERT INTO schedule_rows (
			id, org_id, customer_id, caregiver_id, date, start_time, end_time,
			units, status, generated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for _, row := range scheduleRows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		now := time.Now()
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now

		_, err := db.ExecContext(ctx, query,
			row.ID, row.OrgID, row.CustomerID, row.CaregiverID, row.Date,
			row.StartTime, row.EndTime, row.Units, row.Status, row.GeneratedBy,
			row.CreatedAt, row.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("写入排班行失败: %w", err)
		}
	}

	return nil
}

// ClearGenerated 清除日期段内系统生成的排班行
// 手工录入的行（generated_by = 'manual'）不受影响
func (r *ScheduleRepository) ClearGenerated(ctx context.Context, db DB, orgID uuid.UUID, startDate, endDate string) (int64, error) {
	query := `
		DELETE FROM schedule_rows
		WHERE org_id = $1 AND date >= $2 AND date <= $3 AND generated_by = 'system'
	`

	result, err := db.ExecContext(ctx, query, orgID, startDate, endDate)
	if err != nil {
		return 0, fmt.Errorf("清除系统排班行失败: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected, nil
}

// UpdateStatus 更新排班行状态
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE schedule_rows SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新排班行状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班行不存在")
	}

	return nil
}
