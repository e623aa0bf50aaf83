package repository

import (
	"slices"
	"strings"
)

func (u *User) GroupList() []string {
	groups := []string{}
	for _, group := range strings.Split(u.Groups, ",") {
		if group = strings.TrimSpace(group); group != "" {
			groups = append(groups, group)
		}
	}
	return groups
}

// HasRole is true when role is empty or matches the user's role.
func (u *User) HasRole(role string) bool {
	return role == "" || u.Role == role
}

// HasGroup is true when groups is empty or the user is a member of at least one of them.
func (u *User) HasGroup(groups []string) bool {
	if len(groups) == 0 {
		return true
	}
	for _, group := range u.GroupList() {
		if slices.Contains(groups, group) {
			return true
		}
	}
	return false
}
