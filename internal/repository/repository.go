// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// DB 数据库执行接口
// *sql.DB 与 *sql.Tx 都满足该接口，写入方法可在事务内外复用
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ListFilter 列表查询过滤器
type ListFilter struct {
	OrgID    *uuid.UUID `json:"org_id,omitempty"`
	Status   string     `json:"status,omitempty"`
	Search   string     `json:"search,omitempty"`
	Offset   int        `json:"offset"`
	Limit    int        `json:"limit"`
	OrderBy  string     `json:"order_by,omitempty"`
	OrderDir string     `json:"order_dir,omitempty"` // asc/desc
}

// DefaultListFilter 返回默认过滤器
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:    20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// WithOrgID 按机构过滤
func (f ListFilter) WithOrgID(orgID uuid.UUID) ListFilter {
	f.OrgID = &orgID
	return f
}

// WithStatus 按状态过滤
func (f ListFilter) WithStatus(status string) ListFilter {
	f.Status = status
	return f
}

// WithLimit 设置返回条数上限
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}
