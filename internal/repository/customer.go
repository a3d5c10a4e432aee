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

// CustomerRepository 客户仓储
type CustomerRepository struct {
	db DB
}

// NewCustomerRepository 创建客户仓储
func NewCustomerRepository(db DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, org_id, name, phone, status, weekly_units, allowed_days,
		target_days_per_week, home, created_at, updated_at`

// Create 创建客户
func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	daysJSON, _ := json.Marshal(c.AllowedDays)
	homeJSON, _ := json.Marshal(c.Home)

	query := `
		INSERT INTO customers (
			id, org_id, name, phone, status, weekly_units, allowed_days,
			target_days_per_week, home, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OrgID, c.Name, c.Phone, c.Status, c.WeeklyUnits, daysJSON,
		c.TargetDaysPerWeek, homeJSON, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建客户失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取客户
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM customers
		WHERE id = $1 AND deleted_at IS NULL
	`, customerColumns)

	return r.scanCustomer(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新客户
func (r *CustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	c.UpdatedAt = time.Now()

	daysJSON, _ := json.Marshal(c.AllowedDays)
	homeJSON, _ := json.Marshal(c.Home)

	query := `
		UPDATE customers SET
			name = $2, phone = $3, status = $4, weekly_units = $5,
			allowed_days = $6, target_days_per_week = $7, home = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Phone, c.Status, c.WeeklyUnits,
		daysJSON, c.TargetDaysPerWeek, homeJSON, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新客户失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("客户不存在")
	}

	return nil
}

// Delete 软删除客户
func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE customers SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除客户失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("客户不存在")
	}

	return nil
}

// List 查询客户列表
func (r *CustomerRepository) List(ctx context.Context, filter ListFilter) ([]*model.Customer, int, error) {
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

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM customers WHERE %s", whereClause)
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
		SELECT %s FROM customers
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, customerColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var customers []*model.Customer
	for rows.Next() {
		c, err := r.scanCustomerRow(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}

	return customers, total, nil
}

// ListActive 获取组织下所有有效客户
// 优化运行按创建时间升序取数，保证快照顺序稳定
func (r *CustomerRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*model.Customer, error) {
	filter := DefaultListFilter().WithOrgID(orgID).WithStatus("active").WithLimit(10000)
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"
	customers, _, err := r.List(ctx, filter)
	return customers, err
}

// ListNeeds 获取组织下所有客户的服务需求
func (r *CustomerRepository) ListNeeds(ctx context.Context, orgID uuid.UUID) ([]*model.CareNeed, error) {
	query := `
		SELECT n.customer_id, n.capability_id, n.priority
		FROM care_needs n
		JOIN customers c ON c.id = n.customer_id
		WHERE c.org_id = $1 AND c.deleted_at IS NULL
		ORDER BY n.customer_id, n.capability_id
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("查询服务需求失败: %w", err)
	}
	defer rows.Close()

	var needs []*model.CareNeed
	for rows.Next() {
		n := &model.CareNeed{}
		if err := rows.Scan(&n.CustomerID, &n.CapabilityID, &n.Priority); err != nil {
			return nil, fmt.Errorf("扫描服务需求失败: %w", err)
		}
		needs = append(needs, n)
	}

	return needs, nil
}

// ReplaceNeeds 整体替换某客户的服务需求
func (r *CustomerRepository) ReplaceNeeds(ctx context.Context, customerID uuid.UUID, needs []*model.CareNeed) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM care_needs WHERE customer_id = $1`, customerID); err != nil {
		return fmt.Errorf("清除服务需求失败: %w", err)
	}

	for _, n := range needs {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO care_needs (customer_id, capability_id, priority) VALUES ($1, $2, $3)`,
			customerID, n.CapabilityID, n.Priority,
		)
		if err != nil {
			return fmt.Errorf("写入服务需求失败: %w", err)
		}
	}

	return nil
}

// ListRestrictions 获取组织下所有生效的客户↔护理员约束
func (r *CustomerRepository) ListRestrictions(ctx context.Context, orgID uuid.UUID) ([]*model.Restriction, error) {
	query := `
		SELECT t.id, t.customer_id, t.caregiver_id, t.type, t.reason, t.active,
			t.created_at, t.updated_at
		FROM restrictions t
		JOIN customers c ON c.id = t.customer_id
		WHERE c.org_id = $1 AND t.active = TRUE AND c.deleted_at IS NULL
		ORDER BY t.customer_id, t.caregiver_id
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("查询约束失败: %w", err)
	}
	defer rows.Close()

	var restrictions []*model.Restriction
	for rows.Next() {
		t := &model.Restriction{}
		var reason sql.NullString
		err := rows.Scan(&t.ID, &t.CustomerID, &t.CaregiverID, &t.Type, &reason, &t.Active,
			&t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("扫描约束失败: %w", err)
		}
		t.Reason = reason.String
		restrictions = append(restrictions, t)
	}

	return restrictions, nil
}

// scanCustomer 扫描单行客户数据
func (r *CustomerRepository) scanCustomer(row *sql.Row) (*model.Customer, error) {
	c := &model.Customer{}
	var daysJSON, homeJSON []byte

	err := row.Scan(
		&c.ID, &c.OrgID, &c.Name, &c.Phone, &c.Status, &c.WeeklyUnits, &daysJSON,
		&c.TargetDaysPerWeek, &homeJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描客户数据失败: %w", err)
	}

	json.Unmarshal(daysJSON, &c.AllowedDays)
	json.Unmarshal(homeJSON, &c.Home)

	return c, nil
}

// scanCustomerRow 扫描Rows中的客户数据
func (r *CustomerRepository) scanCustomerRow(rows *sql.Rows) (*model.Customer, error) {
	c := &model.Customer{}
	var daysJSON, homeJSON []byte

	err := rows.Scan(
		&c.ID, &c.OrgID, &c.Name, &c.Phone, &c.Status, &c.WeeklyUnits, &daysJSON,
		&c.TargetDaysPerWeek, &homeJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描客户数据失败: %w", err)
	}

	json.Unmarshal(daysJSON, &c.AllowedDays)
	json.Unmarshal(homeJSON, &c.Home)

	return c, nil
}
