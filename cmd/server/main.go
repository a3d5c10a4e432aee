// PaiHu 长护险护理排班优化服务
// 主程序入口

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/paihu/paihu/internal/config"
	"github.com/paihu/paihu/internal/database"
	"github.com/paihu/paihu/internal/handler"
	"github.com/paihu/paihu/internal/metrics"
	"github.com/paihu/paihu/internal/middleware"
	"github.com/paihu/paihu/internal/security"
	"github.com/paihu/paihu/internal/tenant"
	"github.com/paihu/paihu/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	format := "json"
	if cfg.IsDevelopment() {
		format = "console"
	}
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: format,
	})

	// 打印版本信息
	fmt.Printf("PaiHu 护理排班优化服务 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 连接数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("数据库初始化失败")
		os.Exit(1)
	}
	defer db.Close()

	// 创建处理器
	optimizeHandler := handler.NewOptimizeHandler(db, &cfg.Optimizer)
	applyHandler := handler.NewApplyHandler(db)
	statsHandler := handler.NewStatsHandler(db)
	dispatchHandler := handler.NewDispatchHandler(db)

	// 创建 HTTP 服务器
	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","service":"paihu","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"paihu"}`))
	})

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "PaiHu 护理排班优化 API v1",
			"endpoints": {
				"assignments": {
					"optimize": "POST /api/v1/assignments/optimize",
					"apply": "POST /api/v1/assignments/apply",
					"options": "GET /api/v1/assignments/options"
				},
				"stats": {
					"utilization": "POST /api/v1/stats/utilization"
				},
				"dispatch": {
					"replacement": "POST /api/v1/dispatch/replacement"
				}
			}
		}`))
	})

	// 优化运行 API
	mux.HandleFunc("/api/v1/assignments/optimize", optimizeHandler.Run)

	// 排班落库 API
	mux.HandleFunc("/api/v1/assignments/apply", applyHandler.Apply)

	// 运行选项目录 API
	mux.HandleFunc("/api/v1/assignments/options", handleRunOptions)

	// 工时均衡分析 API
	mux.HandleFunc("/api/v1/stats/utilization", statsHandler.Utilization)

	// 临时替班 API
	mux.HandleFunc("/api/v1/dispatch/replacement", dispatchHandler.Replacement)

	// ========================================
	// 监控端点
	// ========================================

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// API密钥鉴权（按需启用）
	var protected http.Handler = mux
	if cfg.API.AuthEnabled {
		protected = buildAuthMiddleware(cfg)(mux)
	}

	// 中间件执行顺序：recovery -> requestID -> rateLimit -> cors -> logging -> auth -> handler
	globalRateLimiter = NewRateLimiter(float64(cfg.API.RateLimit))
	root := middleware.Recovery(middleware.SecurityHeaders(
		requestIDMiddleware(rateLimitMiddleware(corsMiddleware(loggingMiddleware(protected))))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// buildAuthMiddleware 组装API密钥鉴权中间件
// 配置了固定密钥时直接注册；开发环境下未配置则生成临时密钥并打印
func buildAuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	tenants := tenant.NewTenantManager()
	defaultOrg := tenant.CreateDefaultTenant()
	if err := tenants.Register(defaultOrg); err != nil {
		logger.Error().Err(err).Msg("注册默认机构失败")
	}

	keys := security.NewAPIKeyManager()
	switch {
	case cfg.API.APIKey != "":
		keys.RegisterStatic(cfg.API.APIKey, defaultOrg.Code, []string{"*"})
	case cfg.IsDevelopment():
		key, err := keys.Generate(defaultOrg.Code, "dev", []string{"*"}, 0)
		if err != nil {
			logger.Error().Err(err).Msg("生成开发密钥失败")
		} else {
			logger.Info().Str("api_key", key.Key).Msg("已生成开发环境临时API密钥")
		}
	default:
		logger.Warn().Msg("鉴权已启用但未配置API_KEY，所有API请求都将被拒绝")
	}

	return middleware.Auth(&middleware.AuthConfig{
		Keys:       keys,
		Tenants:    tenants,
		OrgLimiter: security.NewOrgLimiter(cfg.API.RateLimit, time.Minute),
		SkipPaths:  []string{"/health", "/version", cfg.Metrics.Path},
	})
}

// requestIDMiddleware 请求ID追踪中间件
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 尝试从请求头获取 Request ID，没有则生成新的
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		// 设置响应头
		w.Header().Set("X-Request-ID", requestID)

		// 将 Request ID 存储到 context 中
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware 日志中间件
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 获取 Request ID
		requestID, _ := r.Context().Value("request_id").(string)

		// 包装ResponseWriter以捕获状态码
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", duration).
			Msg("请求处理")

		// 记录Prometheus指标
		metrics.RecordRequestMetrics(r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

// responseWriter 包装ResponseWriter以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RateLimiter 简单的令牌桶限流器
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // 每秒添加的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond * 2, // 允许突发流量
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

var globalRateLimiter = NewRateLimiter(100)

// rateLimitMiddleware 限流中间件
func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !globalRateLimiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"code":    "RATE_LIMITED",
				"message": "请求过于频繁，请稍后重试",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RunOption 运行选项定义
type RunOption struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     string `json:"default"`
}

// RunOptionsResponse 运行选项目录响应
type RunOptionsResponse struct {
	Modes   []RunOption `json:"modes"`
	Options []RunOption `json:"options"`
}

// handleRunOptions 返回优化运行支持的模式与选项定义
func handleRunOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	response := RunOptionsResponse{
		Modes: []RunOption{
			{Name: "generate_fresh", Type: "string", Description: "从零生成整周排班，容量从空计", Default: "是"},
			{Name: "optimize_existing", Type: "string", Description: "保留手工录入的排班行，在其占用的容量之上优化", Default: "否"},
		},
		Options: []RunOption{
			{Name: "balance_hours", Type: "bool", Description: "按护理员周工时占比施加均衡惩罚", Default: "true"},
			{Name: "minimize_driving", Type: "bool", Description: "按客户与护理员的距离调整匹配分", Default: "true"},
			{Name: "respect_preferences", Type: "bool", Description: "偏好护理员获得额外加分", Default: "true"},
			{Name: "timeout_seconds", Type: "int", Description: "单次运行超时，超时返回当前最优解", Default: "30"},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
