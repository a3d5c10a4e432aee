// Package model 定义护理排班优化器的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer 客户（长护险服务对象）
type Customer struct {
	BaseModel
	OrgID  uuid.UUID `json:"org_id" db:"org_id"`
	Name   string    `json:"name" db:"name"`
	Phone  string    `json:"phone,omitempty" db:"phone"`
	Status string    `json:"status" db:"status"` // active/inactive

	// 每周核定服务单元数（15分钟/单元）
	WeeklyUnits int `json:"weekly_units" db:"weekly_units"`

	// 允许的服务日（0=周日...6=周六）
	AllowedDays []time.Weekday `json:"allowed_days" db:"allowed_days"`

	// 每周目标上门天数（不超过允许日数量）
	TargetDaysPerWeek int `json:"target_days_per_week" db:"target_days_per_week"`

	Home *Location `json:"home,omitempty" db:"home"`
}

// IsActive 检查客户是否有效
func (c *Customer) IsActive() bool {
	return c.Status == "active"
}

// HasWeeklyUnits 检查客户是否有核定服务单元
// 没有核定单元的客户不产生任何访问槽
func (c *Customer) HasWeeklyUnits() bool {
	return c.WeeklyUnits > 0
}

// AllowsDay 检查某星期几是否在客户允许的服务日内
func (c *Customer) AllowsDay(day time.Weekday) bool {
	for _, d := range c.AllowedDays {
		if d == day {
			return true
		}
	}
	return false
}

// NeedPriority 需求优先级
type NeedPriority string

const (
	PriorityCritical NeedPriority = "critical" // 关键需求
	PriorityHigh     NeedPriority = "high"
	PriorityNormal   NeedPriority = "normal"
	PriorityLow      NeedPriority = "low"
)

// Points 返回需求优先级对应的匹配加分
func (p NeedPriority) Points() float64 {
	switch p {
	case PriorityCritical:
		return 20
	case PriorityHigh:
		return 12
	case PriorityNormal:
		return 6
	case PriorityLow:
		return 3
	default:
		return 6
	}
}

// CareNeed 客户服务需求（客户↔服务项目边）
type CareNeed struct {
	CustomerID   uuid.UUID    `json:"customer_id" db:"customer_id"`
	CapabilityID uuid.UUID    `json:"capability_id" db:"capability_id"`
	Priority     NeedPriority `json:"priority" db:"priority"`
}

// RestrictionType 客户↔护理员约束类型
type RestrictionType string

const (
	RestrictionPreferred RestrictionType = "preferred" // 偏好：加分
	RestrictionExcluded  RestrictionType = "excluded"  // 排除：永不可分配
	RestrictionLocked    RestrictionType = "locked"    // 锁定：仅锁定护理员可服务
)

// Restriction 客户对护理员的约束
// 每个（客户，护理员）组合最多一条生效记录
type Restriction struct {
	BaseModel
	CustomerID  uuid.UUID       `json:"customer_id" db:"customer_id"`
	CaregiverID uuid.UUID       `json:"caregiver_id" db:"caregiver_id"`
	Type        RestrictionType `json:"type" db:"type"`
	Reason      string          `json:"reason,omitempty" db:"reason"`
	Active      bool            `json:"active" db:"active"`
}
