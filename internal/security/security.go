// Package security 提供API密钥管理与请求鉴权
package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidAPIKey     = errors.New("无效的API密钥")
	ErrExpiredAPIKey     = errors.New("API密钥已过期")
	ErrRateLimitExceeded = errors.New("请求频率超限")
)

// KeyPrefix 所有生成密钥的统一前缀
const KeyPrefix = "ph_"

// APIKey API密钥
// 每个密钥绑定一家机构，机构内的全部请求共享同一套权限范围
type APIKey struct {
	Key       string     `json:"key"`
	OrgCode   string     `json:"org_code"`
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Enabled   bool       `json:"enabled"`
}

// IsValid 检查密钥当前是否可用
func (k *APIKey) IsValid() bool {
	if !k.Enabled {
		return false
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// HasScope 检查密钥是否拥有某权限范围
// "*" 表示全部权限
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// APIKeyManager API密钥管理器
// 密钥保存在内存中，进程重启后重新注册
type APIKeyManager struct {
	keys map[string]*APIKey
	mu   sync.RWMutex
}

// NewAPIKeyManager 创建密钥管理器
func NewAPIKeyManager() *APIKeyManager {
	return &APIKeyManager{keys: make(map[string]*APIKey)}
}

// Generate 为机构生成新密钥
func (m *APIKeyManager) Generate(orgCode, name string, scopes []string, ttl time.Duration) (*APIKey, error) {
	raw, err := randomToken(32)
	if err != nil {
		return nil, err
	}

	key := &APIKey{
		Key:       KeyPrefix + raw,
		OrgCode:   orgCode,
		Name:      name,
		Scopes:    scopes,
		CreatedAt: time.Now(),
		Enabled:   true,
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		key.ExpiresAt = &expires
	}

	m.mu.Lock()
	m.keys[key.Key] = key
	m.mu.Unlock()

	return key, nil
}

// RegisterStatic 注册配置文件里预置的固定密钥
func (m *APIKeyManager) RegisterStatic(rawKey, orgCode string, scopes []string) *APIKey {
	key := &APIKey{
		Key:       rawKey,
		OrgCode:   orgCode,
		Name:      "static",
		Scopes:    scopes,
		CreatedAt: time.Now(),
		Enabled:   true,
	}

	m.mu.Lock()
	m.keys[key.Key] = key
	m.mu.Unlock()

	return key
}

// Validate 验证密钥并返回其记录
func (m *APIKeyManager) Validate(rawKey string) (*APIKey, error) {
	m.mu.RLock()
	key, exists := m.keys[rawKey]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrInvalidAPIKey
	}
	if !key.IsValid() {
		return nil, ErrExpiredAPIKey
	}
	return key, nil
}

// Revoke 禁用密钥但保留记录
func (m *APIKeyManager) Revoke(rawKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key, exists := m.keys[rawKey]; exists {
		key.Enabled = false
	}
}

// Delete 删除密钥
func (m *APIKeyManager) Delete(rawKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, rawKey)
}

// OrgLimiter 按机构的滑动窗口限流器
// 与服务器级的令牌桶限流互补：令牌桶保护进程整体，这里限制单个机构
type OrgLimiter struct {
	window  time.Duration
	limit   int
	history map[string][]time.Time
	mu      sync.Mutex
}

// NewOrgLimiter 创建机构级限流器
func NewOrgLimiter(limit int, window time.Duration) *OrgLimiter {
	return &OrgLimiter{
		window:  window,
		limit:   limit,
		history: make(map[string][]time.Time),
	}
}

// Allow 检查机构在窗口内是否还有配额
// limit 覆盖机构配置的专属限额，传0使用限流器默认值
func (l *OrgLimiter) Allow(orgCode string, limit int) bool {
	if limit <= 0 {
		limit = l.limit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.window)
	recent := l.history[orgCode][:0]
	for _, t := range l.history[orgCode] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= limit {
		l.history[orgCode] = recent
		return false
	}

	l.history[orgCode] = append(recent, time.Now())
	return true
}

// ExtractAPIKey 从请求中提取API密钥
// 依次尝试 Authorization Bearer、X-API-Key 头与 api_key 查询参数
func ExtractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

func randomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:length], nil
}
