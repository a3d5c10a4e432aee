// Package model 定义护理排班优化器的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Caregiver 护理员
type Caregiver struct {
	BaseModel
	OrgID  uuid.UUID `json:"org_id" db:"org_id"`
	Name   string    `json:"name" db:"name"`
	Phone  string    `json:"phone,omitempty" db:"phone"`
	Status string    `json:"status" db:"status"` // active/inactive

	Home *Location `json:"home,omitempty" db:"home"`
}

// IsActive 检查护理员是否在职
// 非在职护理员不进入评分矩阵
func (cg *Caregiver) IsActive() bool {
	return cg.Status == "active"
}

// Capability 服务能力/项目（如"用药提醒"）
type Capability struct {
	BaseModel
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// ProficiencyTier 熟练度等级（有序：basic < experienced < specialized）
type ProficiencyTier string

const (
	TierBasic       ProficiencyTier = "basic"
	TierExperienced ProficiencyTier = "experienced"
	TierSpecialized ProficiencyTier = "specialized"
)

// Multiplier 返回熟练度对应的加分倍率
func (t ProficiencyTier) Multiplier() float64 {
	switch t {
	case TierSpecialized:
		return 1.5
	case TierExperienced:
		return 1.2
	default:
		return 1.0
	}
}

// CaregiverCapability 护理员↔服务能力边
type CaregiverCapability struct {
	CaregiverID  uuid.UUID       `json:"caregiver_id" db:"caregiver_id"`
	CapabilityID uuid.UUID       `json:"capability_id" db:"capability_id"`
	Tier         ProficiencyTier `json:"tier" db:"tier"`
}

// DayAvailability 单个工作日的可用性
type DayAvailability struct {
	Available bool   `json:"available"`
	StartTime string `json:"start_time,omitempty"` // HH:MM，可选
	EndTime   string `json:"end_time,omitempty"`   // HH:MM，可选
}

// DefaultMaxHoursPerWeek 默认每周最大工时
const DefaultMaxHoursPerWeek = 40

// Availability 护理员可用性记录
type Availability struct {
	CaregiverID uuid.UUID `json:"caregiver_id" db:"caregiver_id"`
	Status      string    `json:"status" db:"status"` // available/unavailable

	// 按星期几的可用标记与时间窗（0=周日...6=周六）
	Days map[time.Weekday]DayAvailability `json:"days" db:"days"`

	// 每周最大工时，0表示未设置（按默认40计）
	MaxHoursPerWeek float64 `json:"max_hours_per_week" db:"max_hours_per_week"`
}

// IsUnavailable 检查护理员是否整体不可用
func (a *Availability) IsUnavailable() bool {
	return a != nil && a.Status == "unavailable"
}

// AvailableOn 检查某星期几是否可排
// 没有可用性记录时视为全周可排
func (a *Availability) AvailableOn(day time.Weekday) bool {
	if a == nil || a.Days == nil {
		return true
	}
	d, ok := a.Days[day]
	if !ok {
		return true
	}
	return d.Available
}

// WeeklyCap 返回每周最大工时（未设置时取默认值）
func (a *Availability) WeeklyCap() float64 {
	if a == nil || a.MaxHoursPerWeek <= 0 {
		return DefaultMaxHoursPerWeek
	}
	return a.MaxHoursPerWeek
}

// DayWindowMinutes 返回某星期几时间窗的总分钟数
// 未设置起止时间时返回全天（24小时）
func (a *Availability) DayWindowMinutes(day time.Weekday) int {
	const fullDay = 24 * 60
	if a == nil || a.Days == nil {
		return fullDay
	}
	d, ok := a.Days[day]
	if !ok || d.StartTime == "" || d.EndTime == "" {
		return fullDay
	}
	start, err1 := time.Parse("15:04", d.StartTime)
	end, err2 := time.Parse("15:04", d.EndTime)
	if err1 != nil || err2 != nil || !end.After(start) {
		return fullDay
	}
	return int(end.Sub(start).Minutes())
}

// DayStart 返回某星期几的典型开始时间（HH:MM），未设置时返回默认值
func (a *Availability) DayStart(day time.Weekday, fallback string) string {
	if a != nil && a.Days != nil {
		if d, ok := a.Days[day]; ok && d.StartTime != "" {
			return d.StartTime
		}
	}
	return fallback
}

// BlackoutDate 护理员停服日期段（含两端）
type BlackoutDate struct {
	BaseModel
	CaregiverID uuid.UUID `json:"caregiver_id" db:"caregiver_id"`
	StartDate   string    `json:"start_date" db:"start_date"` // YYYY-MM-DD
	EndDate     string    `json:"end_date" db:"end_date"`     // YYYY-MM-DD
	Reason      string    `json:"reason,omitempty" db:"reason"`
}

// Covers 检查某日期是否落在停服段内
func (b *BlackoutDate) Covers(date string) bool {
	return date >= b.StartDate && date <= b.EndDate
}
