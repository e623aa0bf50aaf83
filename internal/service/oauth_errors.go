package service

import (
	"fmt"
	"net/http"
)

const (
	ErrInvalidRequest          = "invalid_request"
	ErrInvalidClient           = "invalid_client"
	ErrInvalidGrant            = "invalid_grant"
	ErrUnauthorizedClient      = "unauthorized_client"
	ErrAccessDenied            = "access_denied"
	ErrInvalidScope            = "invalid_scope"
	ErrUnsupportedGrantType    = "unsupported_grant_type"
	ErrUnsupportedResponseType = "unsupported_response_type"
	ErrServerError             = "server_error"
	ErrInvalidToken            = "invalid_token"
)

// OAuthError is a protocol level failure that is safe to render to the client.
type OAuthError struct {
	Code        string
	Description string
	URI         string
	Status      int
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func newOAuthError(code string, description string) *OAuthError {
	return &OAuthError{
		Code:        code,
		Description: description,
		Status:      oauthErrorStatus(code),
	}
}

func oauthErrorStatus(code string) int {
	switch code {
	case ErrInvalidRequest, ErrInvalidToken:
		return http.StatusBadRequest
	case ErrInvalidClient:
		return http.StatusUnauthorized
	case ErrInvalidGrant, ErrUnauthorizedClient, ErrAccessDenied, ErrInvalidScope:
		return http.StatusForbidden
	case ErrUnsupportedGrantType, ErrUnsupportedResponseType:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func InvalidRequest(description string) *OAuthError {
	return newOAuthError(ErrInvalidRequest, description)
}

func InvalidClient(description string) *OAuthError {
	return newOAuthError(ErrInvalidClient, description)
}

func InvalidGrant(description string) *OAuthError {
	return newOAuthError(ErrInvalidGrant, description)
}

func UnauthorizedClient(description string) *OAuthError {
	return newOAuthError(ErrUnauthorizedClient, description)
}

func AccessDenied(description string) *OAuthError {
	return newOAuthError(ErrAccessDenied, description)
}

func InvalidScope(description string) *OAuthError {
	return newOAuthError(ErrInvalidScope, description)
}

func UnsupportedGrantType(description string) *OAuthError {
	return newOAuthError(ErrUnsupportedGrantType, description)
}

func UnsupportedResponseType(description string) *OAuthError {
	return newOAuthError(ErrUnsupportedResponseType, description)
}

func ServerError(description string) *OAuthError {
	return newOAuthError(ErrServerError, description)
}

func InvalidToken() *OAuthError {
	return newOAuthError(ErrInvalidToken, "")
}
