package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/internal/database"
	"github.com/paihu/paihu/internal/repository"
	"github.com/paihu/paihu/pkg/dispatcher"
	"github.com/paihu/paihu/pkg/errors"
	"github.com/paihu/paihu/pkg/optimizer"
)

// DispatchHandler 临时替班处理器
// 护理员临时缺勤时为单次访问寻找替班人选，不触发整周重排
type DispatchHandler struct {
	loader *repository.SnapshotLoader
}

// NewDispatchHandler 创建临时替班处理器
func NewDispatchHandler(db *database.DB) *DispatchHandler {
	return &DispatchHandler{loader: repository.NewSnapshotLoader(db)}
}

// ReplacementRequest 替班请求
type ReplacementRequest struct {
	OrgID      string `json:"org_id"`
	WeekStart  string `json:"week_start"` // YYYY-MM-DD
	CustomerID string `json:"customer_id"`
	Date       string `json:"date"` // YYYY-MM-DD
	Units      int    `json:"units"`

	// 缺勤护理员，从候选中排除
	ExcludeCaregiverID string `json:"exclude_caregiver_id,omitempty"`

	MaxResults int `json:"max_results,omitempty"`
}

// Replacement 寻找替班人选
func (h *DispatchHandler) Replacement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ReplacementRequest
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
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的客户ID格式"))
		return
	}

	var excludeID uuid.UUID
	if req.ExcludeCaregiverID != "" {
		if excludeID, err = uuid.Parse(req.ExcludeCaregiverID); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的护理员ID格式"))
			return
		}
	}

	snap, err := h.loader.Load(r.Context(), orgID, weekStart)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "装载替班数据失败"))
		return
	}

	engine := dispatcher.NewEngine(snap, optimizer.DefaultOptions())
	resp := engine.Dispatch(&dispatcher.Request{
		CustomerID:         customerID,
		Date:               req.Date,
		Units:              req.Units,
		ExcludeCaregiverID: excludeID,
		MaxResults:         req.MaxResults,
	})

	if !resp.Success {
		respondError(w, errors.NoAvailableCaregiver(customerID.String(), resp.Reason))
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
