package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"
)

// Middleware authenticates bearer tokens and checks the role the policy
// requires for each request.
type Middleware struct {
	secret []byte
	policy Policy
	logger *log.Logger
}

// MiddlewareOption customizes a Middleware.
type MiddlewareOption func(*Middleware)

// WithDenyLogger logs rejected requests.
func WithDenyLogger(logger *log.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{secret: secret, policy: policy}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap guards next. Exempt routes and routes without a required role pass
// through untouched.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, guarded := m.policy.RequiredRole(r)
		if !guarded {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.deny(w, r, http.StatusUnauthorized, ErrEmptyToken)
			return
		}
		claims, err := ParseJWT(token, m.secret)
		if err != nil {
			m.deny(w, r, http.StatusUnauthorized, err)
			return
		}
		role := Role(claims.Role)
		if !role.Satisfies(required) {
			m.deny(w, r, http.StatusForbidden, errors.New("auth: role "+claims.Role+" below "+string(required)))
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), Identity{Subject: claims.Subject, Role: role})))
	})
}

func (m *Middleware) deny(w http.ResponseWriter, r *http.Request, status int, reason error) {
	if m.logger != nil {
		m.logger.Printf("event=auth_denied method=%s path=%s status=%d reason=%q", r.Method, r.URL.Path, status, reason)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="energy-surplus"`)
		http.Error(w, "unauthorized", status)
		return
	}
	http.Error(w, "forbidden", status)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
