package auth

import (
	"net/http"
	"strings"
)

// Rule maps requests to the role they require. An empty Method matches any
// method; Prefix makes Path match by prefix instead of exactly.
type Rule struct {
	Method string
	Path   string
	Prefix bool
	Role   Role
}

func (r Rule) matches(req *http.Request) bool {
	if r.Method != "" && r.Method != req.Method {
		return false
	}
	if r.Prefix {
		return strings.HasPrefix(req.URL.Path, r.Path)
	}
	return req.URL.Path == r.Path
}

// Policy resolves the role a request needs. Rules are evaluated in order and
// the first match wins; exempt paths are never guarded.
type Policy struct {
	exempt map[string]bool
	rules  []Rule
}

// NewPolicy builds a policy from exempt paths and ordered rules.
func NewPolicy(exempt []string, rules []Rule) Policy {
	set := make(map[string]bool, len(exempt))
	for _, path := range exempt {
		set[path] = true
	}
	return Policy{exempt: set, rules: append([]Rule(nil), rules...)}
}

// SurplusRules guards the surplus API: reads need viewer, triggering runs
// needs admin, any other write under /api/ needs operator.
func SurplusRules() []Rule {
	return []Rule{
		{Path: "/api/v1/surplus", Role: RoleViewer},
		{Path: "/api/v1/exports/", Prefix: true, Role: RoleViewer},
		{Method: http.MethodPost, Path: "/api/v1/runs", Role: RoleAdmin},
		{Path: "/api/v1/runs", Role: RoleViewer},
		{Method: http.MethodGet, Path: "/api/v1/runs/", Prefix: true, Role: RoleViewer},
		{Path: "/api/v1/runs/", Prefix: true, Role: RoleAdmin},
		{Method: http.MethodGet, Path: "/api/", Prefix: true, Role: RoleViewer},
		{Method: http.MethodHead, Path: "/api/", Prefix: true, Role: RoleViewer},
		{Method: http.MethodOptions, Path: "/api/", Prefix: true, Role: RoleViewer},
		{Path: "/api/", Prefix: true, Role: RoleOperator},
	}
}

// IsExempt reports whether a request skips authentication.
func (p Policy) IsExempt(r *http.Request) bool {
	return r == nil || p.exempt[r.URL.Path]
}

// RequiredRole returns the role of the first matching rule. The second result
// is false when no rule guards the request.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	for _, rule := range p.rules {
		if rule.matches(r) {
			return rule.Role, true
		}
	}
	return "", false
}
