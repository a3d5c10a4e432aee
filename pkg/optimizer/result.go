package optimizer

import (
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
)

// VisitAssignment 单个访问槽的分配结果
type VisitAssignment struct {
	Date          string       `json:"date"`
	Day           time.Weekday `json:"day"`
	Units         int          `json:"units"`
	Hours         float64      `json:"hours"`
	CaregiverID   uuid.UUID    `json:"caregiver_id"`
	CaregiverName string       `json:"caregiver_name"`
	Score         float64      `json:"score"`
	NeedsMet      int          `json:"needs_met"`
	TotalNeeds    int          `json:"total_needs"`
	Factors       []string     `json:"factors,omitempty"`
}

// UnfilledSlot 未能分配的访问槽及原因
type UnfilledSlot struct {
	Date   string `json:"date"`
	Units  int    `json:"units"`
	Reason string `json:"reason"`
}

// CustomerResult 单个客户的分配结果
type CustomerResult struct {
	CustomerID    uuid.UUID         `json:"customer_id"`
	CustomerName  string            `json:"customer_name"`
	HoursNeeded   float64           `json:"hours_needed"`
	HoursAssigned float64           `json:"hours_assigned"`
	Visits        []*VisitAssignment `json:"visits"`
	Unfilled      []*UnfilledSlot   `json:"unfilled,omitempty"`
}

// FullyFilled 客户本周访问槽是否全部分配
func (r *CustomerResult) FullyFilled() bool {
	return len(r.Unfilled) == 0 && len(r.Visits) > 0
}

// CaregiverUtilization 护理员本周工时利用情况
type CaregiverUtilization struct {
	CaregiverID    uuid.UUID `json:"caregiver_id"`
	CaregiverName  string    `json:"caregiver_name"`
	HoursAssigned  float64   `json:"hours_assigned"`
	WeeklyCap      float64   `json:"weekly_cap"`
	UtilizationPct float64   `json:"utilization_pct"`
	CustomerCount  int       `json:"customer_count"`
}

// Summary 优化运行汇总
type Summary struct {
	TotalSlots           int     `json:"total_slots"`
	FilledSlots          int     `json:"filled_slots"`
	SlotFillPercent      float64 `json:"slot_fill_percent"`
	TotalHoursNeeded     float64 `json:"total_hours_needed"`
	TotalHoursAssigned   float64 `json:"total_hours_assigned"`
	CoveragePercent      float64 `json:"coverage_percent"`
	UnfilledCustomers    int     `json:"unfilled_customers"`
	FullyFilledCustomers int     `json:"fully_filled_customers"`
	TotalScore           float64 `json:"total_score"`
	SwapIterations       int     `json:"swap_iterations"`
}

// Result 一次优化运行的完整结果
type Result struct {
	RunID       uuid.UUID               `json:"run_id"`
	OrgID       uuid.UUID               `json:"org_id"`
	WeekStart   string                  `json:"week_start"`
	Customers   []*CustomerResult       `json:"customers"`
	Utilization []*CaregiverUtilization `json:"utilization"`
	Summary     Summary                 `json:"summary"`
	DurationMS  int64                   `json:"duration_ms"`
}

// aggregate 把运行状态汇总为对外结果
// 客户按访问槽首次出现的顺序排列，保证输出确定性
func aggregate(rs *runState, swapIters int, duration time.Duration) *Result {
	snap := rs.engine.snap
	result := &Result{
		RunID:     uuid.New(),
		OrgID:     snap.OrgID,
		WeekStart: snap.WeekStart.Format("2006-01-02"),
		Summary:   Summary{SwapIterations: swapIters},
	}

	byCustomer := make(map[uuid.UUID]*CustomerResult)
	customerOf := make(map[uuid.UUID][]uuid.UUID) // 护理员 -> 服务的客户集合

	for i, slot := range rs.slots {
		cr := byCustomer[slot.CustomerID]
		if cr == nil {
			cr = &CustomerResult{CustomerID: slot.CustomerID}
			if c := snap.GetCustomer(slot.CustomerID); c != nil {
				cr.CustomerName = c.Name
			}
			byCustomer[slot.CustomerID] = cr
			result.Customers = append(result.Customers, cr)
		}

		cr.HoursNeeded += slot.Hours()
		result.Summary.TotalSlots++
		result.Summary.TotalHoursNeeded += slot.Hours()

		cgIdx := rs.assignment[i]
		if cgIdx == unassigned {
			reason := rs.blockReason(i)
			cr.Unfilled = append(cr.Unfilled, &UnfilledSlot{
				Date:   slot.Date,
				Units:  slot.Units,
				Reason: reason,
			})
			rs.engine.logger.SlotUnfilled(slot.CustomerID.String(), slot.Date, reason)
			continue
		}

		cg := rs.caregivers[cgIdx]
		entry := rs.matrix[i][cgIdx]
		cr.Visits = append(cr.Visits, &VisitAssignment{
			Date:          slot.Date,
			Day:           slot.Day,
			Units:         slot.Units,
			Hours:         slot.Hours(),
			CaregiverID:   cg.ID,
			CaregiverName: cg.Name,
			Score:         entry.Score,
			NeedsMet:      entry.NeedsMet,
			TotalNeeds:    entry.TotalNeeds,
			Factors:       entry.Factors,
		})
		cr.HoursAssigned += slot.Hours()

		result.Summary.FilledSlots++
		result.Summary.TotalHoursAssigned += slot.Hours()
		result.Summary.TotalScore += entry.Score
		customerOf[cg.ID] = appendUnique(customerOf[cg.ID], slot.CustomerID)
	}

	for _, cr := range result.Customers {
		if len(cr.Unfilled) > 0 {
			result.Summary.UnfilledCustomers++
		} else if len(cr.Visits) > 0 {
			result.Summary.FullyFilledCustomers++
		}
	}

	if result.Summary.TotalSlots > 0 {
		result.Summary.SlotFillPercent = float64(result.Summary.FilledSlots) / float64(result.Summary.TotalSlots) * 100
	} else {
		result.Summary.SlotFillPercent = 100
	}
	if result.Summary.TotalHoursNeeded > 0 {
		result.Summary.CoveragePercent = result.Summary.TotalHoursAssigned / result.Summary.TotalHoursNeeded * 100
	} else {
		// 无需求即视为全覆盖
		result.Summary.CoveragePercent = 100
	}

	for _, cg := range rs.caregivers {
		cap := snap.AvailabilityOf(cg.ID).WeeklyCap()
		hours := rs.tracker.WeeklyHours(cg.ID)
		u := &CaregiverUtilization{
			CaregiverID:   cg.ID,
			CaregiverName: cg.Name,
			HoursAssigned: hours,
			WeeklyCap:     cap,
			CustomerCount: len(customerOf[cg.ID]),
		}
		if cap > 0 {
			u.UtilizationPct = hours / cap * 100
		}
		result.Utilization = append(result.Utilization, u)
	}

	result.DurationMS = duration.Milliseconds()
	return result
}

// Rows 把分配结果展开成排班行视图，供物化层使用
func (r *Result) Rows(orgID uuid.UUID) []*model.ScheduleRow {
	var rows []*model.ScheduleRow
	for _, cr := range r.Customers {
		for _, v := range cr.Visits {
			rows = append(rows, &model.ScheduleRow{
				BaseModel:   model.NewBaseModel(),
				OrgID:       orgID,
				CustomerID:  cr.CustomerID,
				CaregiverID: v.CaregiverID,
				Date:        v.Date,
				Units:       v.Units,
				Status:      "scheduled",
				GeneratedBy: "system",
			})
		}
	}
	return rows
}

func appendUnique(list []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
