// Package schedule 把优化结果物化为带具体起止时间的排班行
package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
	"github.com/paihu/paihu/pkg/optimizer"
)

// DefaultDayStart 护理员未设置时间窗时的默认开始时间
const DefaultDayStart = "08:00"

// Conflict 物化时发现的时间冲突
// 冲突行仍会输出，由调用方决定如何处置
type Conflict struct {
	Row      *model.ScheduleRow `json:"row"`
	Existing *model.ScheduleRow `json:"existing"`
	Reason   string             `json:"reason"`
}

// Output 物化结果
type Output struct {
	Rows      []*model.ScheduleRow `json:"rows"`
	Conflicts []*Conflict          `json:"conflicts,omitempty"`
}

// Materializer 排班物化器
// 同一护理员同一天的多次访问按时间顺序堆叠，起点取护理员当天的开始时间；
// 已有排班（如手工录入的行）之后的新访问从其结束时间向后排
type Materializer struct {
	snap *optimizer.Snapshot
}

// NewMaterializer 创建物化器
func NewMaterializer(snap *optimizer.Snapshot) *Materializer {
	return &Materializer{snap: snap}
}

type dayKey struct {
	CaregiverID uuid.UUID
	Date        string
}

// Materialize 把优化结果展开为带起止时间的排班行
func (m *Materializer) Materialize(result *optimizer.Result) *Output {
	out := &Output{}
	cursors := make(map[dayKey]time.Time)

	// 客户与访问都按结果内顺序处理，输出顺序确定
	for _, cr := range result.Customers {
		for _, v := range cr.Visits {
			key := dayKey{CaregiverID: v.CaregiverID, Date: v.Date}
			cursor, ok := cursors[key]
			if !ok {
				cursor = m.dayCursor(v.CaregiverID, v.Date)
			}

			row := &model.ScheduleRow{
				BaseModel:   model.NewBaseModel(),
				OrgID:       result.OrgID,
				CustomerID:  cr.CustomerID,
				CaregiverID: v.CaregiverID,
				Date:        v.Date,
				StartTime:   cursor,
				EndTime:     cursor.Add(time.Duration(v.Units*model.UnitMinutes) * time.Minute),
				Units:       v.Units,
				Status:      "scheduled",
				GeneratedBy: "system",
			}
			out.Rows = append(out.Rows, row)
			cursors[key] = row.EndTime

			// 对照现有排班复查重叠；冲突不中断整批物化
			for _, existing := range m.snap.ExistingFor(v.CaregiverID, v.Date) {
				if row.Range().Overlaps(existing.Range()) {
					out.Conflicts = append(out.Conflicts, &Conflict{
						Row:      row,
						Existing: existing,
						Reason:   "与现有排班重叠",
					})
					break
				}
			}
		}
	}

	return out
}

// dayCursor 计算某护理员某天第一条新排班的开始时间
// 基准为当天开始时间；若已有排班结束得更晚，从其结束时间按刻钟向上取整后接排
func (m *Materializer) dayCursor(caregiverID uuid.UUID, date string) time.Time {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		day = time.Now()
	}

	avail := m.snap.AvailabilityOf(caregiverID)
	start := avail.DayStart(day.Weekday(), DefaultDayStart)
	cursor := atTime(day, start)

	existing := m.snap.ExistingFor(caregiverID, date)
	if len(existing) > 0 {
		rows := make([]*model.ScheduleRow, len(existing))
		copy(rows, existing)
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].EndTime.Before(rows[j].EndTime)
		})
		if last := rows[len(rows)-1].EndTime; last.After(cursor) {
			cursor = roundUpQuarter(last)
		}
	}

	return cursor
}

// atTime 把 HH:MM 叠加到某天零点上
func atTime(day time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		t, _ = time.Parse("15:04", DefaultDayStart)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

// roundUpQuarter 把时间向上取整到刻钟边界
func roundUpQuarter(t time.Time) time.Time {
	rounded := t.Truncate(15 * time.Minute)
	if rounded.Equal(t) {
		return t
	}
	return rounded.Add(15 * time.Minute)
}
