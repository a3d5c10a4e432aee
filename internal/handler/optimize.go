// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/internal/config"
	"github.com/paihu/paihu/internal/database"
	"github.com/paihu/paihu/internal/metrics"
	"github.com/paihu/paihu/internal/repository"
	"github.com/paihu/paihu/pkg/errors"
	"github.com/paihu/paihu/pkg/model"
	"github.com/paihu/paihu/pkg/optimizer"
	"github.com/paihu/paihu/pkg/schedule"
)

// OptimizeHandler 优化运行处理器
type OptimizeHandler struct {
	loader *repository.SnapshotLoader
	cfg    *config.OptimizerConfig
}

// NewOptimizeHandler 创建优化运行处理器
func NewOptimizeHandler(db *database.DB, cfg *config.OptimizerConfig) *OptimizeHandler {
	return &OptimizeHandler{
		loader: repository.NewSnapshotLoader(db),
		cfg:    cfg,
	}
}

// OptimizeRequest 优化运行请求
type OptimizeRequest struct {
	OrgID     string           `json:"org_id"`
	WeekStart string           `json:"week_start"` // YYYY-MM-DD
	Options   *OptimizeOptions `json:"options,omitempty"`
}

// OptimizeOptions 优化选项（未传的布尔项默认开启）
type OptimizeOptions struct {
	Mode               string `json:"mode,omitempty"` // generate_fresh/optimize_existing
	BalanceHours       *bool  `json:"balance_hours,omitempty"`
	MinimizeDriving    *bool  `json:"minimize_driving,omitempty"`
	RespectPreferences *bool  `json:"respect_preferences,omitempty"`
	TimeoutSeconds     int    `json:"timeout_seconds,omitempty"`
}

// OptimizeResponse 优化运行响应
// 结果仅供预览，调用方确认后通过apply接口落库
type OptimizeResponse struct {
	Success  bool              `json:"success"`
	Result   *optimizer.Result `json:"result"`
	Schedule *schedule.Output  `json:"schedule,omitempty"`
	Duration string            `json:"duration"`

	// 超时导致交换阶段提前结束时为true，结果为截至当时的最优解
	Truncated bool `json:"truncated,omitempty"`
}

// Run 执行一次优化运行
func (h *OptimizeHandler) Run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	orgID, err := uuid.Parse(req.OrgID)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的组织ID格式"))
		return
	}

	// 周起始日不合法时在任何计算前拒绝
	weekStart, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		respondError(w, errors.InvalidWeekStart(req.WeekStart))
		return
	}

	opts, appErr := buildOptions(req.Options)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	timeout := h.cfg.RunTimeout
	if req.Options != nil && req.Options.TimeoutSeconds > 0 {
		timeout = time.Duration(req.Options.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	snap, err := h.loader.Load(ctx, orgID, weekStart)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "装载优化数据失败"))
		return
	}

	start := time.Now()
	engine := optimizer.NewEngine(snap, opts)
	if h.cfg.MaxSwapPasses > 0 {
		engine.SetMaxSwapPasses(h.cfg.MaxSwapPasses)
	}

	result, err := engine.Run(ctx)
	metrics.RecordOptimizeRun(string(opts.Mode), err == nil, time.Since(start))
	if err != nil && err != context.DeadlineExceeded {
		respondError(w, errors.Wrap(err, errors.CodeInternal, "优化运行失败"))
		return
	}
	// 超时中断交换阶段，贪心解仍然完整可用，照常返回
	truncated := err == context.DeadlineExceeded

	metrics.SetCoveragePercent(orgID.String(), result.Summary.CoveragePercent)
	metrics.SetUnfilledSlots(orgID.String(), countUnfilled(result))
	metrics.RecordSwapPasses(orgID.String(), result.Summary.SwapIterations)

	// 附带预排好具体起止时间的排班行视图，便于前端直接预览
	out := schedule.NewMaterializer(snap).Materialize(result)

	respondJSON(w, http.StatusOK, OptimizeResponse{
		Success:   true,
		Result:    result,
		Schedule:  out,
		Duration:  time.Since(start).String(),
		Truncated: truncated,
	})
}

// buildOptions 把请求选项转换为引擎选项
func buildOptions(in *OptimizeOptions) (optimizer.Options, *errors.AppError) {
	opts := optimizer.DefaultOptions()
	if in == nil {
		return opts, nil
	}

	switch in.Mode {
	case "", string(model.ModeGenerateFresh):
		opts.Mode = model.ModeGenerateFresh
	case string(model.ModeOptimizeExisting):
		opts.Mode = model.ModeOptimizeExisting
	default:
		return opts, errors.InvalidInput("mode", "仅支持 generate_fresh 或 optimize_existing")
	}

	if in.BalanceHours != nil {
		opts.BalanceHours = *in.BalanceHours
	}
	if in.MinimizeDriving != nil {
		opts.MinimizeDriving = *in.MinimizeDriving
	}
	if in.RespectPreferences != nil {
		opts.RespectPreferences = *in.RespectPreferences
	}
	return opts, nil
}

// countUnfilled 统计未分配访问槽总数
func countUnfilled(result *optimizer.Result) int {
	count := 0
	for _, cr := range result.Customers {
		count += len(cr.Unfilled)
	}
	return count
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}
