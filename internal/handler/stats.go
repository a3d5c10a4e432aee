package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/internal/database"
	"github.com/paihu/paihu/internal/metrics"
	"github.com/paihu/paihu/internal/repository"
	"github.com/paihu/paihu/pkg/errors"
	"github.com/paihu/paihu/pkg/model"
	"github.com/paihu/paihu/pkg/stats"
)

// StatsHandler 排班统计处理器
type StatsHandler struct {
	caregivers *repository.CaregiverRepository
	schedules  *repository.ScheduleRepository
	analyzer   *stats.BalanceAnalyzer
}

// NewStatsHandler 创建排班统计处理器
func NewStatsHandler(db *database.DB) *StatsHandler {
	return &StatsHandler{
		caregivers: repository.NewCaregiverRepository(db),
		schedules:  repository.NewScheduleRepository(db),
		analyzer:   stats.NewBalanceAnalyzer(),
	}
}

// UtilizationRequest 工时均衡分析请求
type UtilizationRequest struct {
	OrgID     string `json:"org_id"`
	WeekStart string `json:"week_start"` // YYYY-MM-DD
}

// UtilizationResponse 工时均衡分析响应
type UtilizationResponse struct {
	Success bool                      `json:"success"`
	Data    *stats.UtilizationMetrics `json:"data"`
}

// Utilization 分析某周排班的工时均衡情况
func (h *StatsHandler) Utilization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req UtilizationRequest
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

	ctx := r.Context()
	dates := model.WeekDates(weekStart)

	rows, err := h.schedules.ListWeek(ctx, orgID, dates[0], dates[len(dates)-1])
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询排班行失败"))
		return
	}
	caregivers, err := h.caregivers.ListActive(ctx, orgID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询护理员失败"))
		return
	}
	availability, err := h.caregivers.ListAvailability(ctx, orgID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询可用性失败"))
		return
	}

	visits := make([]*stats.VisitInfo, len(rows))
	for i, row := range rows {
		visits[i] = &stats.VisitInfo{
			CaregiverID: row.CaregiverID,
			CustomerID:  row.CustomerID,
			Date:        row.Date,
			StartTime:   row.StartTime,
			EndTime:     row.EndTime,
		}
	}

	availMap := make(map[uuid.UUID]*model.Availability, len(availability))
	for _, a := range availability {
		availMap[a.CaregiverID] = a
	}

	infos := make([]*stats.CaregiverInfo, len(caregivers))
	for i, cg := range caregivers {
		info := &stats.CaregiverInfo{ID: cg.ID, Name: cg.Name}
		if avail, ok := availMap[cg.ID]; ok {
			info.WeeklyCap = avail.WeeklyCap()
		}
		infos[i] = info
	}

	data := h.analyzer.Analyze(visits, infos)
	metrics.SetHoursGini(orgID.String(), data.HoursGini)

	respondJSON(w, http.StatusOK, UtilizationResponse{Success: true, Data: data})
}
