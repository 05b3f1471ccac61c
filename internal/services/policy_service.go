package services

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/you/accountsvc/domain"
)

// RoutePolicy grants a role an action pattern on a route pattern.
type RoutePolicy struct {
	Role     string
	Resource string
	Action   string
}

// DefaultRoutePolicies covers the profile routes under prefix: every account
// holder may use its own profile routes, admins may use any method on any
// route below prefix.
func DefaultRoutePolicies(prefix string) []RoutePolicy {
	return []RoutePolicy{
		{Role: domain.RoleUser, Resource: prefix + "/myProfile", Action: "GET"},
		{Role: domain.RoleUser, Resource: prefix + "/updateProfile", Action: "PATCH"},
		{Role: domain.RoleUser, Resource: prefix + "/deleteProfile", Action: "DELETE"},
		{Role: domain.RoleUser, Resource: prefix + "/updatePassword", Action: "POST"},
		{Role: domain.RoleAdmin, Resource: prefix + "/*", Action: "(GET|POST|PATCH|DELETE)"},
	}
}

// RoleSubject is the casbin subject for an account role.
func RoleSubject(role string) string {
	return "role_" + role
}

// CasbinEnforcerWrapper wraps the real Casbin enforcer to implement our interface
type CasbinEnforcerWrapper struct {
	enforcer *casbin.Enforcer
}

// NewCasbinEnforcerWrapper creates a wrapper for the real Casbin enforcer
func NewCasbinEnforcerWrapper(enforcer *casbin.Enforcer) domain.CasbinEnforcer {
	return &CasbinEnforcerWrapper{enforcer: enforcer}
}

func (w *CasbinEnforcerWrapper) AddPolicy(params ...interface{}) (bool, error) {
	return w.enforcer.AddPolicy(params...)
}

func (w *CasbinEnforcerWrapper) RemovePolicy(params ...interface{}) (bool, error) {
	return w.enforcer.RemovePolicy(params...)
}

func (w *CasbinEnforcerWrapper) Enforce(rvals ...interface{}) (bool, error) {
	return w.enforcer.Enforce(rvals...)
}

func (w *CasbinEnforcerWrapper) GetPolicy() ([][]string, error) {
	return w.enforcer.GetPolicy()
}

// PolicyServiceImpl implements domain.PolicyService using Casbin. Callers
// pass account roles; subjects are stored with RoleSubject. When the
// enforcer has an adapter, changes are persisted by casbin's auto-save.
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a new policy service
func NewPolicyService(enforcer *casbin.Enforcer) *PolicyServiceImpl {
	return &PolicyServiceImpl{
		enforcer: NewCasbinEnforcerWrapper(enforcer),
	}
}

// NewPolicyServiceWithEnforcer creates a new policy service with a CasbinEnforcer interface (for testing)
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer) *PolicyServiceImpl {
	return &PolicyServiceImpl{
		enforcer: enforcer,
	}
}

// AddPolicy implements domain.PolicyService
func (p *PolicyServiceImpl) AddPolicy(role, resource, action string) error {
	if _, err := p.enforcer.AddPolicy(RoleSubject(role), resource, action); err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}

// RemovePolicy implements domain.PolicyService
func (p *PolicyServiceImpl) RemovePolicy(role, resource, action string) error {
	if _, err := p.enforcer.RemovePolicy(RoleSubject(role), resource, action); err != nil {
		return fmt.Errorf("failed to remove policy: %w", err)
	}
	return nil
}

// CheckPermission implements domain.PolicyService
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	if role == "" {
		return false, nil
	}
	return p.enforcer.Enforce(RoleSubject(role), resource, action)
}

// GetPolicies implements domain.PolicyService
func (p *PolicyServiceImpl) GetPolicies() [][]string {
	policies, _ := p.enforcer.GetPolicy()
	return policies
}

// Seed adds the given policies. Policies already stored are left as they are.
func (p *PolicyServiceImpl) Seed(policies []RoutePolicy) error {
	for _, rp := range policies {
		if err := p.AddPolicy(rp.Role, rp.Resource, rp.Action); err != nil {
			return err
		}
	}
	return nil
}

var _ domain.PolicyService = (*PolicyServiceImpl)(nil)
