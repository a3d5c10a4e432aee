// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// CaregiverRepository 护理员仓储
type CaregiverRepository struct {
	db DB
}

// NewCaregiverRepository 创建护理员仓储
func NewCaregiverRepository(db DB) *CaregiverRepository {
	return &CaregiverRepository{db: db}
}

const caregiverColumns = `id, org_id, name, phone, status, home, created_at, updated_at`

// Create 创建护理员
func (r *CaregiverRepository) Create(ctx context.Context, cg *model.Caregiver) error {
	if cg.ID == uuid.Nil {
		cg.ID = uuid.New()
	}
	now := time.Now()
	cg.CreatedAt = now
	cg.UpdatedAt = now

	homeJSON, _ := json.Marshal(cg.Home)

	query := `
		INSERT INTO caregivers (id, org_id, name, phone, status, home, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		cg.ID, cg.OrgID, cg.Name, cg.Phone, cg.Status, homeJSON, cg.CreatedAt, cg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建护理员失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取护理员
func (r *CaregiverRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Caregiver, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM caregivers
		WHERE id = $1 AND deleted_at IS NULL
	`, caregiverColumns)

	return r.scanCaregiver(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新护理员
func (r *CaregiverRepository) Update(ctx context.Context, cg *model.Caregiver) error {
	cg.UpdatedAt = time.Now()

	homeJSON, _ := json.Marshal(cg.Home)

	query := `
		UPDATE caregivers SET
			name = $2, phone = $3, status = $4, home = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		cg.ID, cg.Name, cg.Phone, cg.Status, homeJSON, cg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新护理员失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("护理员不存在")
	}

	return nil
}

// Delete 软删除护理员
func (r *CaregiverRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE caregivers SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除护理员失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("护理员不存在")
	}

	return nil
}

// List 查询护理员列表
func (r *CaregiverRepository) List(ctx context.Context, filter ListFilter) ([]*model.Caregiver, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.OrgID != nil {
		conditions = append(conditions, fmt.Sprintf("org_id = $%d", argIndex))
		args = append(args, *filter.OrgID)
		argIndex++
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM caregivers WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM caregivers
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, caregiverColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var caregivers []*model.Caregiver
	for rows.Next() {
		cg, err := r.scanCaregiverRow(rows)
		if err != nil {
			return nil, 0, err
		}
		caregivers = append(caregivers, cg)
	}

	return caregivers, total, nil
}

// ListActive 获取组织下所有在职护理员
// 按创建时间升序取数，保证快照顺序稳定
func (r *CaregiverRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*model.Caregiver, error) {
	filter := DefaultListFilter().WithOrgID(orgID).WithStatus("active").WithLimit(10000)
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"
	caregivers, _, err := r.List(ctx, filter)
	return caregivers, err
}

// ListSkills 获取组织下所有护理员↔服务能力记录
func (r *CaregiverRepository) ListSkills(ctx context.Context, orgID uuid.UUID) ([]*model.CaregiverCapability, error) {
	query := `
		SELECT s.caregiver_id, s.capability_id, s.tier
		FROM caregiver_capabilities s
		JOIN caregivers cg ON cg.id = s.caregiver_id
		WHERE cg.org_id = $1 AND cg.deleted_at IS NULL
		ORDER BY s.caregiver_id, s.capability_id
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("查询护理员能力失败: %w", err)
	}
	defer rows.Close()

	var skills []*model.CaregiverCapability
	for rows.Next() {
		s := &model.CaregiverCapability{}
		if err := rows.Scan(&s.CaregiverID, &s.CapabilityID, &s.Tier); err != nil {
			return nil, fmt.Errorf("扫描护理员能力失败: %w", err)
		}
		skills = append(skills, s)
	}

	return skills, nil
}

// ReplaceSkills 整体替换某护理员的能力记录
func (r *CaregiverRepository) ReplaceSkills(ctx context.Context, caregiverID uuid.UUID, skills []*model.CaregiverCapability) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM caregiver_capabilities WHERE caregiver_id = $1`, caregiverID); err != nil {
		return fmt.Errorf("清除护理员能力失败: %w", err)
	}

	for _, s := range skills {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO caregiver_capabilities (caregiver_id, capability_id, tier) VALUES ($1, $2, $3)`,
			caregiverID, s.CapabilityID, s.Tier,
		)
		if err != nil {
			return fmt.Errorf("写入护理员能力失败: %w", err)
		}
	}

	return nil
}

// ListAvailability 获取组织下所有护理员的可用性记录
func (r *CaregiverRepository) ListAvailability(ctx context.Context, orgID uuid.UUID) ([]*model.Availability, error) {
	query := `
		SELECT a.caregiver_id, a.status, a.days, a.max_hours_per_week
		FROM availability a
		JOIN caregivers cg ON cg.id = a.caregiver_id
		WHERE cg.org_id = $1 AND cg.deleted_at IS NULL
		ORDER BY a.caregiver_id
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("查询可用性失败: %w", err)
	}
	defer rows.Close()

	var records []*model.Availability
	for rows.Next() {
		a := &model.Availability{}
		var daysJSON []byte
		if err := rows.Scan(&a.CaregiverID, &a.Status, &daysJSON, &a.MaxHoursPerWeek); err != nil {
			return nil, fmt.Errorf("扫描可用性失败: %w", err)
		}
		json.Unmarshal(daysJSON, &a.Days)
		records = append(records, a)
	}

	return records, nil
}

// SaveAvailability 新增或更新护理员可用性
func (r *CaregiverRepository) SaveAvailability(ctx context.Context, a *model.Availability) error {
	daysJSON, _ := json.Marshal(a.Days)

	query := `
		INSERT INTO availability (caregiver_id, status, days, max_hours_per_week)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (caregiver_id) DO UPDATE SET
			status = EXCLUDED.status,
			days = EXCLUDED.days,
			max_hours_per_week = EXCLUDED.max_hours_per_week
	`

	_, err := r.db.ExecContext(ctx, query, a.CaregiverID, a.Status, daysJSON, a.MaxHoursPerWeek)
	if err != nil {
		return fmt.Errorf("保存可用性失败: %w", err)
	}

	return nil
}

// ListBlackouts 获取组织下与日期段有交集的停服记录
func (r *CaregiverRepository) ListBlackouts(ctx context.Context, orgID uuid.UUID, startDate, endDate string) ([]*model.BlackoutDate, error) {
	query := `
		SELECT b.id, b.caregiver_id, b.start_date, b.end_date, b.reason, b.created_at, b.updated_at
		FROM blackout_dates b
		JOIN caregivers cg ON cg.id = b.caregiver_id
		WHERE cg.org_id = $1 AND cg.deleted_at IS NULL
			AND b.start_date <= $3 AND b.end_date >= $2
		ORDER BY b.caregiver_id, b.start_date
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("查询停服记录失败: %w", err)
	}
	defer rows.Close()

	var blackouts []*model.BlackoutDate
	for rows.Next() {
		b := &model.BlackoutDate{}
		var reason sql.NullString
		err := rows.Scan(&b.ID, &b.CaregiverID, &b.StartDate, &b.EndDate, &reason, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("扫描停服记录失败: %w", err)
		}
		b.Reason = reason.String
		blackouts = append(blackouts, b)
	}

	return blackouts, nil
}

// scanCaregiver 扫描单行护理员数据
func (r *CaregiverRepository) scanCaregiver(row *sql.Row) (*model.Caregiver, error) {
	cg := &model.Caregiver{}
	var homeJSON []byte

	err := row.Scan(
		&cg.ID, &cg.OrgID, &cg.Name, &cg.Phone, &cg.Status, &homeJSON, &cg.CreatedAt, &cg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描护理员数据失败: %w", err)
	}

	json.Unmarshal(homeJSON, &cg.Home)

	return cg, nil
}

// scanCaregiverRow 扫描Rows中的护理员数据
func (r *CaregiverRepository) scanCaregiverRow(rows *sql.Rows) (*model.Caregiver, error) {
	cg := &model.Caregiver{}
	var homeJSON []byte

	err := rows.Scan(
		&cg.ID, &cg.OrgID, &cg.Name, &cg.Phone, &cg.Status, &homeJSON, &cg.CreatedAt, &cg.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描护理员数据失败: %w", err)
	}

	json.Unmarshal(homeJSON, &cg.Home)

	return cg, nil
}
