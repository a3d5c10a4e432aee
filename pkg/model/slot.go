// Package model 定义护理排班优化器的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// VisitSlot 访问槽：某客户在某日期的一次上门需求
// 仅在一次优化运行内存在，不直接持久化
type VisitSlot struct {
	CustomerID uuid.UUID    `json:"customer_id"`
	Date       string       `json:"date"` // YYYY-MM-DD
	Day        time.Weekday `json:"day"`
	Units      int          `json:"units"` // 15分钟单元数
}

// Minutes 返回访问槽的分钟数
func (s *VisitSlot) Minutes() int {
	return s.Units * UnitMinutes
}

// Hours 返回访问槽的小时数
func (s *VisitSlot) Hours() float64 {
	return UnitsToHours(s.Units)
}

// ScheduleRow 已落库的排班行（现有排班快照/物化结果）
type ScheduleRow struct {
	BaseModel
	OrgID       uuid.UUID `json:"org_id" db:"org_id"`
	CustomerID  uuid.UUID `json:"customer_id" db:"customer_id"`
	CaregiverID uuid.UUID `json:"caregiver_id" db:"caregiver_id"`
	Date        string    `json:"date" db:"date"` // YYYY-MM-DD
	StartTime   time.Time `json:"start_time" db:"start_time"`
	EndTime     time.Time `json:"end_time" db:"end_time"`
	Units       int       `json:"units" db:"units"`
	Status      string    `json:"status" db:"status"`             // scheduled/confirmed/completed/cancelled
	GeneratedBy string    `json:"generated_by" db:"generated_by"` // system/manual
}

// Hours 返回排班行的小时数
func (r *ScheduleRow) Hours() float64 {
	return r.EndTime.Sub(r.StartTime).Hours()
}

// Range 返回排班行的时间范围
func (r *ScheduleRow) Range() TimeRange {
	return TimeRange{Start: r.StartTime, End: r.EndTime}
}

// WeekDates 返回从周起始日开始的7个日期（YYYY-MM-DD）
func WeekDates(weekStart time.Time) []string {
	dates := make([]string, 7)
	for i := 0; i < 7; i++ {
		dates[i] = weekStart.AddDate(0, 0, i).Format("2006-01-02")
	}
	return dates
}
