// Package validator 提供排班行校验功能
package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictOverlap   ConflictType = "overlap"    // 时间重叠
	ConflictDayHours  ConflictType = "day_hours"  // 超过每日最大工时
	ConflictWeekHours ConflictType = "week_hours" // 超过每周工时上限
)

// Conflict 冲突信息
type Conflict struct {
	Type        ConflictType `json:"type"`
	Severity    string       `json:"severity"` // error/warning
	CaregiverID uuid.UUID    `json:"caregiver_id"`
	Date        string       `json:"date,omitempty"`
	Message     string       `json:"message"`
	Rows        []uuid.UUID  `json:"rows,omitempty"` // 相关的排班行ID
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	MaxHoursPerDay float64 // 每日最大工时
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		MaxHoursPerDay: 10,
	}
}

// ConflictDetector 排班行冲突检测器
// 落库前对一周的排班行做最后一道校验
type ConflictDetector struct {
	config *DetectorConfig
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测一周排班行的全部冲突
// availability 可为 nil，此时周上限按默认值计
func (d *ConflictDetector) DetectAll(rows []*model.ScheduleRow, availability map[uuid.UUID]*model.Availability) []Conflict {
	var conflicts []Conflict

	byCaregiver := groupByCaregiver(rows)

	ids := make([]uuid.UUID, 0, len(byCaregiver))
	for id := range byCaregiver {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		cgRows := byCaregiver[id]
		conflicts = append(conflicts, d.detectOverlaps(id, cgRows)...)
		conflicts = append(conflicts, d.detectHourViolations(id, cgRows, availability[id])...)
	}

	return conflicts
}

// DetectForRow 检测新排班行与既有行之间的冲突
func (d *ConflictDetector) DetectForRow(newRow *model.ScheduleRow, existing []*model.ScheduleRow) []Conflict {
	var conflicts []Conflict

	for _, row := range existing {
		if row.CaregiverID != newRow.CaregiverID || row.ID == newRow.ID {
			continue
		}
		if newRow.Range().Overlaps(row.Range()) {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictOverlap,
				Severity:    "error",
				CaregiverID: newRow.CaregiverID,
				Date:        newRow.Date,
				Message:     "与现有排班时间重叠",
				Rows:        []uuid.UUID{newRow.ID, row.ID},
			})
		}
	}

	dayHours := newRow.Hours()
	for _, row := range existing {
		if row.CaregiverID == newRow.CaregiverID && row.Date == newRow.Date && row.ID != newRow.ID {
			dayHours += row.Hours()
		}
	}
	if dayHours > d.config.MaxHoursPerDay {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictDayHours,
			Severity:    "error",
			CaregiverID: newRow.CaregiverID,
			Date:        newRow.Date,
			Message:     fmt.Sprintf("当日工时 %.1f 小时，超过限制 %.0f 小时", dayHours, d.config.MaxHoursPerDay),
		})
	}

	return conflicts
}

// detectOverlaps 检测同一护理员排班行的时间重叠
func (d *ConflictDetector) detectOverlaps(caregiverID uuid.UUID, rows []*model.ScheduleRow) []Conflict {
	var conflicts []Conflict

	sorted := make([]*model.ScheduleRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	for i := 0; i < len(sorted)-1; i++ {
		current := sorted[i]
		next := sorted[i+1]

		if current.Range().Overlaps(next.Range()) {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictOverlap,
				Severity:    "error",
				CaregiverID: caregiverID,
				Date:        current.Date,
				Message:     fmt.Sprintf("护理员在 %s 存在时间重叠的排班", current.Date),
				Rows:        []uuid.UUID{current.ID, next.ID},
			})
		}
	}

	return conflicts
}

// detectHourViolations 检测每日/每周工时超限
func (d *ConflictDetector) detectHourViolations(caregiverID uuid.UUID, rows []*model.ScheduleRow, avail *model.Availability) []Conflict {
	var conflicts []Conflict

	dailyHours := make(map[string]float64)
	var weeklyTotal float64

	for _, row := range rows {
		hours := row.Hours()
		dailyHours[row.Date] += hours
		weeklyTotal += hours
	}

	dates := make([]string, 0, len(dailyHours))
	for date := range dailyHours {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		if hours := dailyHours[date]; hours > d.config.MaxHoursPerDay {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDayHours,
				Severity:    "error",
				CaregiverID: caregiverID,
				Date:        date,
				Message:     fmt.Sprintf("护理员在 %s 工作 %.1f 小时，超过限制 %.0f 小时", date, hours, d.config.MaxHoursPerDay),
			})
		}
	}

	// WeeklyCap 对 nil 记录返回默认上限
	weeklyCap := avail.WeeklyCap()
	if weeklyTotal > weeklyCap {
		conflicts = append(conflicts, Conflict{
			Type:        ConflictWeekHours,
			Severity:    "error",
			CaregiverID: caregiverID,
			Message:     fmt.Sprintf("护理员周工作 %.1f 小时，超过上限 %.0f 小时", weeklyTotal, weeklyCap),
		})
	}

	return conflicts
}

// groupByCaregiver 按护理员分组
func groupByCaregiver(rows []*model.ScheduleRow) map[uuid.UUID][]*model.ScheduleRow {
	result := make(map[uuid.UUID][]*model.ScheduleRow)
	for _, row := range rows {
		result[row.CaregiverID] = append(result[row.CaregiverID], row)
	}
	return result
}
