package service

import (
	"slices"
	"strings"

	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/utils"
)

const (
	WildcardScope      = "*"
	OfflineAccessScope = "offline_access"
	LoginScope         = "login"
)

// HasAtLeastOneScope reports whether granted covers at least one of the required scopes.
func HasAtLeastOneScope(required []string, granted []string) bool {
	if len(required) == 0 {
		return true
	}

	if slices.Contains(granted, WildcardScope) {
		return true
	}

	if len(granted) == 0 {
		return false
	}

	for _, scope := range required {
		if slices.Contains(granted, scope) {
			return true
		}
	}

	return false
}

// HasAllScopes reports whether granted covers every required scope.
func HasAllScopes(required []string, granted []string) bool {
	if len(required) == 0 {
		return true
	}

	if slices.Contains(granted, WildcardScope) {
		return true
	}

	for _, scope := range required {
		if !slices.Contains(granted, scope) {
			return false
		}
	}

	return true
}

// HasAllowedScopes checks required against the client's allowed scopes. A client
// without a scope restriction may request anything.
func HasAllowedScopes(required []string, client *repository.Client) bool {
	allowed := ClientScopes(client)

	if len(allowed) == 0 {
		allowed = []string{WildcardScope}
	}

	return HasAllScopes(required, allowed)
}

func ClientScopes(client *repository.Client) []string {
	if client == nil {
		return []string{}
	}
	return ParseScope(client.AllowedScopes)
}

func ParseScope(scope string) []string {
	return utils.SplitList(scope)
}

func FormatScope(scopes []string) string {
	return strings.Join(scopes, " ")
}
