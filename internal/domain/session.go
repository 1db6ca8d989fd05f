package domain

// Session is the authenticated caller as resolved from a bearer token.
type Session struct {
	UserID      string
	TenantID    string
	Permissions []string
}

// Valid reports whether the session identifies both a user and a tenant.
func (s *Session) Valid() bool {
	return s != nil && s.UserID != "" && s.TenantID != ""
}

// HasPermission reports whether the caller carries perm or the wildcard.
func (s *Session) HasPermission(perm string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Permissions {
		if p == perm || p == "*" {
			return true
		}
	}
	return false
}
