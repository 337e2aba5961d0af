package shared

import "strings"

// NormalizeRole upper-cases and trims a role claim so "student" and
// " STUDENT" compare equal.
func NormalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}

// IsBudgetExempt reports whether callers with this role bypass watch-time
// budgeting. Every operation consults this once instead of comparing roles
// inline.
func IsBudgetExempt(role string) bool {
	switch NormalizeRole(role) {
	case RoleTeacher, RoleAcademy, RoleAdmin:
		return true
	}
	return false
}

// IsExclusivityEnforced reports whether single-active-device rules apply.
// Only students are limited to one device.
func IsExclusivityEnforced(role string) bool {
	return NormalizeRole(role) == RoleStudent
}

func IsKnownRole(role string) bool {
	switch NormalizeRole(role) {
	case RoleStudent, RoleTeacher, RoleAcademy, RoleAdmin:
		return true
	}
	return false
}
