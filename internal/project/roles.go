package project

import "strings"

// RoleMarker identifies a role alias inside an owner field.
const RoleMarker = "ROLE_"

// Roles maps role aliases such as ROLE_MANAGER to usernames. Aliases match
// case-insensitively.
type Roles map[string]string

// IsRoleAlias reports whether name contains the role marker in any letter case.
func IsRoleAlias(name string) bool {
	return strings.Contains(strings.ToUpper(name), RoleMarker)
}

// Resolve returns the username behind alias.
func (r Roles) Resolve(alias string) (string, bool) {
	if username, ok := r[alias]; ok {
		return username, true
	}
	for key, username := range r {
		if strings.EqualFold(key, alias) {
			return username, true
		}
	}
	return "", false
}
