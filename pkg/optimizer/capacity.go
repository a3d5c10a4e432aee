// Package optimizer 提供护理员↔客户的周排班优化引擎
package optimizer

import (
	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// Tracker 容量跟踪器接口
// 算法中唯一的可变共享状态：每个护理员的当日/当周已分配工时
// Assign 与 Unassign 必须成对出现，换班尝试的试探/回退都通过它们表达
type Tracker interface {
	CanAssign(slot *model.VisitSlot, caregiverID uuid.UUID) bool
	Assign(slot *model.VisitSlot, caregiverID uuid.UUID)
	Unassign(slot *model.VisitSlot, caregiverID uuid.UUID)
	WeeklyHours(caregiverID uuid.UUID) float64
	DailyMinutes(caregiverID uuid.UUID, date string) int
}

type dayKey struct {
	CaregiverID uuid.UUID
	Date        string
}

// hourTracker Tracker 的默认实现
type hourTracker struct {
	snap   *Snapshot
	weekly map[uuid.UUID]float64
	daily  map[dayKey]int // 分钟
}

// NewTracker 创建空的容量跟踪器
// 每次优化运行必须创建全新实例，运行结束后丢弃
func NewTracker(snap *Snapshot) Tracker {
	return &hourTracker{
		snap:   snap,
		weekly: make(map[uuid.UUID]float64),
		daily:  make(map[dayKey]int),
	}
}

// NewSeededTracker 创建预置了手工排班工时的容量跟踪器
// optimize_existing 模式下使用：手工创建的排班行不会被重排，
// 其占用的工时必须计入容量上限
func NewSeededTracker(snap *Snapshot) Tracker {
	t := &hourTracker{
		snap:   snap,
		weekly: make(map[uuid.UUID]float64),
		daily:  make(map[dayKey]int),
	}
	for _, row := range snap.ExistingSchedule {
		if row.GeneratedBy != "manual" {
			continue
		}
		t.weekly[row.CaregiverID] += row.Hours()
		key := dayKey{CaregiverID: row.CaregiverID, Date: row.Date}
		t.daily[key] += int(row.EndTime.Sub(row.StartTime).Minutes())
	}
	return t
}

// CanAssign 检查分配后是否仍满足周工时上限与当日时间窗
func (t *hourTracker) CanAssign(slot *model.VisitSlot, caregiverID uuid.UUID) bool {
	avail := t.snap.AvailabilityOf(caregiverID)

	if t.weekly[caregiverID]+slot.Hours() > avail.WeeklyCap() {
		return false
	}

	key := dayKey{CaregiverID: caregiverID, Date: slot.Date}
	window := avail.DayWindowMinutes(slot.Day)
	return t.daily[key]+slot.Minutes() <= window
}

// Assign 记入访问槽工时
func (t *hourTracker) Assign(slot *model.VisitSlot, caregiverID uuid.UUID) {
	t.weekly[caregiverID] += slot.Hours()
	t.daily[dayKey{CaregiverID: caregiverID, Date: slot.Date}] += slot.Minutes()
}

// Unassign 扣回访问槽工时
func (t *hourTracker) Unassign(slot *model.VisitSlot, caregiverID uuid.UUID) {
	t.weekly[caregiverID] -= slot.Hours()
	t.daily[dayKey{CaregiverID: caregiverID, Date: slot.Date}] -= slot.Minutes()
}

// WeeklyHours 返回护理员当周已分配工时
func (t *hourTracker) WeeklyHours(caregiverID uuid.UUID) float64 {
	return t.weekly[caregiverID]
}

// DailyMinutes 返回护理员某日期已分配分钟数
func (t *hourTracker) DailyMinutes(caregiverID uuid.UUID, date string) int {
	return t.daily[dayKey{CaregiverID: caregiverID, Date: date}]
}
