package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTenant_IsActive(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	cases := []struct {
		name   string
		tenant *Tenant
		want   bool
	}{
		{"活跃机构", &Tenant{Status: "active"}, true},
		{"暂停机构", &Tenant{Status: "suspended"}, false},
		{"过期状态机构", &Tenant{Status: "expired"}, false},
		{"未到期机构", &Tenant{Status: "active", ExpiredAt: &future}, true},
		{"已到期机构", &Tenant{Status: "active", ExpiredAt: &past}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tenant.IsActive(); got != tc.want {
				t.Errorf("IsActive() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTenant_HasFeature(t *testing.T) {
	org := &Tenant{Settings: TenantSettings{Features: []string{"optimize", "apply"}}}

	if !org.HasFeature("optimize") || !org.HasFeature("apply") {
		t.Error("listed features should match")
	}
	if org.HasFeature("dispatch") {
		t.Error("unlisted feature should not match")
	}

	all := &Tenant{Settings: TenantSettings{Features: []string{"*"}}}
	if !all.HasFeature("dispatch") {
		t.Error("wildcard should grant every feature")
	}
}

func TestTenantManager_RegisterAndGet(t *testing.T) {
	m := NewTenantManager()
	org := &Tenant{
		ID:     uuid.New(),
		Code:   "yanglao-001",
		Name:   "测试养老服务机构",
		Status: "active",
	}

	if err := m.Register(org); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := m.Register(&Tenant{}); err != ErrInvalidTenant {
		t.Errorf("empty code error = %v, want ErrInvalidTenant", err)
	}

	got, err := m.Get("yanglao-001")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != org.ID {
		t.Error("Get returned a different tenant")
	}

	if _, err := m.Get("nonexistent"); err != ErrTenantNotFound {
		t.Errorf("unknown code error = %v, want ErrTenantNotFound", err)
	}
}

func TestTenantManager_DisabledTenant(t *testing.T) {
	m := NewTenantManager()
	id := uuid.New()
	m.Register(&Tenant{ID: id, Code: "yanglao-002", Status: "suspended"})

	if _, err := m.Get("yanglao-002"); err != ErrTenantDisabled {
		t.Errorf("Get disabled error = %v, want ErrTenantDisabled", err)
	}
	if _, err := m.GetByID(id); err != ErrTenantDisabled {
		t.Errorf("GetByID disabled error = %v, want ErrTenantDisabled", err)
	}
}

func TestTenantManager_GetByID(t *testing.T) {
	m := NewTenantManager()
	id := uuid.New()
	m.Register(&Tenant{ID: id, Code: "yanglao-001", Status: "active"})

	got, err := m.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Code != "yanglao-001" {
		t.Errorf("GetByID returned code %q", got.Code)
	}

	if _, err := m.GetByID(uuid.New()); err != ErrTenantNotFound {
		t.Errorf("unknown id error = %v, want ErrTenantNotFound", err)
	}
}

func TestTenantContext(t *testing.T) {
	org := &Tenant{Code: "yanglao-001"}
	ctx := WithTenant(context.Background(), org)

	got, ok := FromContext(ctx)
	if !ok || got.Code != "yanglao-001" {
		t.Error("tenant should round-trip through the context")
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should not carry a tenant")
	}
}

func TestCreateDefaultTenant(t *testing.T) {
	org := CreateDefaultTenant()

	if org.Code != "default" || org.Status != "active" {
		t.Errorf("default tenant = %s/%s", org.Code, org.Status)
	}
	if !org.IsActive() {
		t.Error("default tenant should be active")
	}
	if org.Settings.MaxCustomers <= 0 || org.Settings.MaxCaregivers <= 0 {
		t.Error("default settings should set positive quotas")
	}
	if !org.HasFeature("optimize") {
		t.Error("default tenant should carry the optimize feature")
	}
}
