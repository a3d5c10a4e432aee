package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/internal/database"
	"github.com/paihu/paihu/internal/metrics"
	"github.com/paihu/paihu/internal/repository"
	"github.com/paihu/paihu/pkg/errors"
	"github.com/paihu/paihu/pkg/model"
	"github.com/paihu/paihu/pkg/optimizer"
	"github.com/paihu/paihu/pkg/schedule"
	"github.com/paihu/paihu/pkg/validator"
)

// ApplyHandler 排班落库处理器
// 把调用方确认（可能已手工调整）的分配列表物化为排班行并写库
type ApplyHandler struct {
	db        *database.DB
	loader    *repository.SnapshotLoader
	schedules *repository.ScheduleRepository
	detector  *validator.ConflictDetector
}

// NewApplyHandler 创建排班落库处理器
func NewApplyHandler(db *database.DB) *ApplyHandler {
	return &ApplyHandler{
		db:        db,
		loader:    repository.NewSnapshotLoader(db),
		schedules: repository.NewScheduleRepository(db),
		detector:  validator.NewConflictDetector(nil),
	}
}

// ApplyRequest 排班落库请求
type ApplyRequest struct {
	OrgID     string `json:"org_id"`
	WeekStart string `json:"week_start"` // YYYY-MM-DD

	// 为真时先清除本周系统生成的排班行，手工录入的行不受影响
	ClearGenerated bool `json:"clear_generated"`

	Assignments []ApplyAssignment `json:"assignments"`
}

// ApplyAssignment 单条待落库分配
type ApplyAssignment struct {
	CustomerID  string `json:"customer_id"`
	CaregiverID string `json:"caregiver_id"`
	Date        string `json:"date"` // YYYY-MM-DD
	Units       int    `json:"units"`
}

// ApplyConflict 落库时发现的单槽冲突
type ApplyConflict struct {
	CustomerID  string `json:"customer_id"`
	CaregiverID string `json:"caregiver_id"`
	Date        string `json:"date"`
	Reason      string `json:"reason"`
}

// ApplyResponse 排班落库响应
type ApplyResponse struct {
	Success   bool            `json:"success"`
	Created   int             `json:"created"`
	Skipped   int             `json:"skipped"`
	Cleared   int64           `json:"cleared"`
	Conflicts []ApplyConflict `json:"conflicts,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// Apply 落库排班
// 冲突槽逐条上报且跳过，其余槽照常提交，整批不因个别冲突中止
func (h *ApplyHandler) Apply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的组织ID格式"))
		return
	}
	weekStart, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		respondError(w, errors.InvalidWeekStart(req.WeekStart))
		return
	}
	if len(req.Assignments) == 0 {
		respondError(w, errors.InvalidInput("assignments", "分配列表不能为空"))
		return
	}

	ctx := r.Context()
	snap, err := h.loader.Load(ctx, orgID, weekStart)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "装载排班数据失败"))
		return
	}

	// 即将被清除的系统行不参与冲突判定
	if req.ClearGenerated {
		kept := snap.ExistingSchedule[:0]
		for _, row := range snap.ExistingSchedule {
			if row.GeneratedBy != "system" {
				kept = append(kept, row)
			}
		}
		snap.ExistingSchedule = kept
		snap.BuildIndexes()
	}

	result, appErr := buildApplyResult(orgID, req.WeekStart, req.Assignments)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	out := schedule.NewMaterializer(snap).Materialize(result)

	resp := ApplyResponse{}
	conflicted := make(map[*model.ScheduleRow]bool, len(out.Conflicts))
	for _, c := range out.Conflicts {
		conflicted[c.Row] = true
		resp.Conflicts = append(resp.Conflicts, ApplyConflict{
			CustomerID:  c.Row.CustomerID.String(),
			CaregiverID: c.Row.CaregiverID.String(),
			Date:        c.Row.Date,
			Reason:      c.Reason,
		})
	}

	var rows []*model.ScheduleRow
	for _, row := range out.Rows {
		if conflicted[row] {
			resp.Skipped++
			continue
		}
		rows = append(rows, row)
	}

	// 工时越界不阻止落库，作为告警随响应返回
	availMap := make(map[uuid.UUID]*model.Availability, len(snap.Availability))
	for _, a := range snap.Availability {
		availMap[a.CaregiverID] = a
	}
	checkRows := append(append([]*model.ScheduleRow{}, rows...), snap.ExistingSchedule...)
	for _, c := range h.detector.DetectAll(checkRows, availMap) {
		resp.Warnings = append(resp.Warnings, c.Message)
	}

	startDate := snap.Dates[0]
	endDate := snap.Dates[len(snap.Dates)-1]
	err = h.db.Transaction(ctx, func(tx *sql.Tx) error {
		if req.ClearGenerated {
			cleared, err := h.schedules.ClearGenerated(ctx, tx, orgID, startDate, endDate)
			if err != nil {
				return err
			}
			resp.Cleared = cleared
		}
		return h.schedules.InsertRows(ctx, tx, rows)
	})
	metrics.RecordApply(err == nil)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeApplyFailed, "排班落库失败"))
		return
	}

	resp.Success = true
	resp.Created = len(rows)
	respondJSON(w, http.StatusOK, resp)
}

// buildApplyResult 把分配列表还原为物化层可消费的结果结构
// 客户分组顺序与分配列表首次出现顺序一致
func buildApplyResult(orgID uuid.UUID, weekStart string, assignments []ApplyAssignment) (*optimizer.Result, *errors.AppError) {
	result := &optimizer.Result{
		RunID:     uuid.New(),
		OrgID:     orgID,
		WeekStart: weekStart,
	}
	byCustomer := make(map[uuid.UUID]*optimizer.CustomerResult)

	for _, a := range assignments {
		customerID, err := uuid.Parse(a.CustomerID)
		if err != nil {
			return nil, errors.InvalidInput("assignments", "无效的客户ID格式: "+a.CustomerID)
		}
		caregiverID, err := uuid.Parse(a.CaregiverID)
		if err != nil {
			return nil, errors.InvalidInput("assignments", "无效的护理员ID格式: "+a.CaregiverID)
		}
		date, err := time.Parse("2006-01-02", a.Date)
		if err != nil {
			return nil, errors.InvalidInput("assignments", "无效的日期格式: "+a.Date)
		}
		if a.Units <= 0 {
			return nil, errors.InvalidInput("assignments", "服务单元数必须大于0")
		}

		cr := byCustomer[customerID]
		if cr == nil {
			cr = &optimizer.CustomerResult{CustomerID: customerID}
			byCustomer[customerID] = cr
			result.Customers = append(result.Customers, cr)
		}
		cr.Visits = append(cr.Visits, &optimizer.VisitAssignment{
			Date:        a.Date,
			Day:         date.Weekday(),
			Units:       a.Units,
			Hours:       model.UnitsToHours(a.Units),
			CaregiverID: caregiverID,
		})
	}

	return result, nil
}
