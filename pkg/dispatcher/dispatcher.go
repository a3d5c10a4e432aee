// Package dispatcher 提供紧急替班派单
// 护理员临时请假时，为受影响的访问就地找出可行的替班人选
package dispatcher

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/pkg/model"
	"github.com/paihu/paihu/pkg/optimizer"
)

// DefaultMaxResults 默认返回的候选人数
const DefaultMaxResults = 5

// Engine 替班派单引擎
// 复用周优化的可行性过滤与兼容性评分，但只处理单个访问
type Engine struct {
	snap   *optimizer.Snapshot
	scorer *optimizer.Scorer
}

// NewEngine 创建替班派单引擎
func NewEngine(snap *optimizer.Snapshot, opts optimizer.Options) *Engine {
	return &Engine{
		snap:   snap,
		scorer: optimizer.NewScorer(snap, opts),
	}
}

// Request 替班请求
type Request struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Units      int       `json:"units"`

	// 原护理员（请假者），不参与候选
	ExcludeCaregiverID uuid.UUID `json:"exclude_caregiver_id"`

	MaxResults int `json:"max_results"`
}

// Candidate 替班候选人
type Candidate struct {
	Caregiver   *model.Caregiver `json:"caregiver"`
	Score       float64          `json:"score"`
	NeedsMet    int              `json:"needs_met"`
	TotalNeeds  int              `json:"total_needs"`
	Factors     []string         `json:"factors,omitempty"`
	WeeklyHours float64          `json:"weekly_hours"` // 候选人本周已排工时
}

// Response 替班响应
type Response struct {
	Success      bool        `json:"success"`
	BestMatch    *Candidate  `json:"best_match,omitempty"`
	Alternatives []Candidate `json:"alternatives,omitempty"`
	Reason       string      `json:"reason,omitempty"`
}

// Dispatch 为单个访问找替班人选
func (e *Engine) Dispatch(req *Request) *Response {
	customer := e.snap.GetCustomer(req.CustomerID)
	if customer == nil {
		return &Response{Success: false, Reason: "客户不存在"}
	}
	if req.Units <= 0 {
		return &Response{Success: false, Reason: "访问单元数无效"}
	}

	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return &Response{Success: false, Reason: "日期格式无效"}
	}

	slot := &model.VisitSlot{
		CustomerID: req.CustomerID,
		Date:       req.Date,
		Day:        day.Weekday(),
		Units:      req.Units,
	}

	candidates := e.evaluate(slot, req.ExcludeCaregiverID)

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	if len(candidates) == 0 {
		return &Response{
			Success: false,
			Reason:  "没有可行的替班人选",
		}
	}

	resp := &Response{
		Success:   true,
		BestMatch: &candidates[0],
	}
	if len(candidates) > 1 {
		rest := candidates[1:]
		if len(rest) > maxResults-1 {
			rest = rest[:maxResults-1]
		}
		resp.Alternatives = rest
	}

	return resp
}

// evaluate 评估全部在职护理员，返回按分数降序的可行候选
func (e *Engine) evaluate(slot *model.VisitSlot, exclude uuid.UUID) []Candidate {
	var candidates []Candidate

	for _, cg := range e.snap.Caregivers {
		if !cg.IsActive() || cg.ID == exclude {
			continue
		}
		if ok, _ := optimizer.CheckFeasibility(e.snap, slot, cg.ID); !ok {
			continue
		}

		entry := e.scorer.Score(slot.CustomerID, cg.ID)
		if entry.Blocked {
			continue
		}

		weekly := e.weeklyHours(cg.ID)
		if !e.hasCapacity(cg.ID, slot, weekly) {
			continue
		}

		candidates = append(candidates, Candidate{
			Caregiver:   cg,
			Score:       entry.Score,
			NeedsMet:    entry.NeedsMet,
			TotalNeeds:  entry.TotalNeeds,
			Factors:     entry.Factors,
			WeeklyHours: weekly,
		})
	}

	// 分数并列时保持快照内的护理员顺序
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates
}

// weeklyHours 统计候选人本周已排的全部排班工时
// 替班在既有周排班之上追加，系统生成与手工录入的行都计入
func (e *Engine) weeklyHours(caregiverID uuid.UUID) float64 {
	var hours float64
	for _, date := range e.snap.Dates {
		for _, row := range e.snap.ExistingFor(caregiverID, date) {
			hours += row.Hours()
		}
	}
	return hours
}

// hasCapacity 检查追加该访问后是否仍在周上限与当日时间窗内
func (e *Engine) hasCapacity(caregiverID uuid.UUID, slot *model.VisitSlot, weekly float64) bool {
	avail := e.snap.AvailabilityOf(caregiverID)

	if weekly+slot.Hours() > avail.WeeklyCap() {
		return false
	}

	dayMinutes := 0
	for _, row := range e.snap.ExistingFor(caregiverID, slot.Date) {
		dayMinutes += row.Units * model.UnitMinutes
	}
	return dayMinutes+slot.Minutes() <= avail.DayWindowMinutes(slot.Day)
}
