// Package middleware 提供HTTP鉴权中间件
package middleware

import (
	"net/http"
	"strings"

	"github.com/paihu/paihu/internal/security"
	"github.com/paihu/paihu/internal/tenant"
	"github.com/paihu/paihu/pkg/logger"
)

// AuthConfig 鉴权中间件配置
type AuthConfig struct {
	Keys       *security.APIKeyManager
	Tenants    *tenant.TenantManager
	OrgLimiter *security.OrgLimiter // 可为 nil，表示不做机构级限流
	SkipPaths  []string             // 免鉴权的路径前缀
}

// Auth API密钥鉴权中间件
// 验证通过后把机构信息写入请求上下文，供下游处理器使用
func Auth(cfg *AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range cfg.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			rawKey := security.ExtractAPIKey(r)
			if rawKey == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing_api_key", "API密钥未提供")
				return
			}

			key, err := cfg.Keys.Validate(rawKey)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("API密钥验证失败")
				writeAuthError(w, http.StatusUnauthorized, "invalid_api_key", "无效的API密钥")
				return
			}

			t, err := cfg.Tenants.Get(key.OrgCode)
			if err != nil {
				writeAuthError(w, http.StatusForbidden, "org_unavailable", "机构不可用")
				return
			}

			if cfg.OrgLimiter != nil && !cfg.OrgLimiter.Allow(t.Code, t.Settings.APIRateLimit) {
				writeAuthError(w, http.StatusTooManyRequests, "rate_limit", "机构请求频率超限")
				return
			}

			w.Header().Set("X-Org-ID", t.ID.String())
			next.ServeHTTP(w, r.WithContext(tenant.WithTenant(r.Context(), t)))
		})
	}
}

// RequireScope 权限范围检查中间件
// 放在 Auth 之后使用，密钥缺少对应范围时拒绝请求
func RequireScope(scope string, keys *security.APIKeyManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := security.ExtractAPIKey(r)
			if rawKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			key, err := keys.Validate(rawKey)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid_api_key", "无效的API密钥")
				return
			}
			if !key.HasScope(scope) {
				writeAuthError(w, http.StatusForbidden, "insufficient_scope", "权限不足")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Recovery panic恢复中间件
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error().
					Interface("panic", err).
					Str("path", r.URL.Path).
					Msg("请求处理panic")
				writeAuthError(w, http.StatusInternalServerError, "internal_error", "服务器内部错误")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders 安全响应头中间件
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + code + `","message":"` + message + `"}`))
}
