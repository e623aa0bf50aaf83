package tlog

import "github.com/gin-gonic/gin"

func AuditLoginSuccess(c *gin.Context, username, provider string) {
	Audit.Info().
		Str("event", "login").
		Str("result", "success").
		Str("username", username).
		Str("provider", provider).
		Str("ip", c.ClientIP()).
		Send()
}

func AuditLoginFailure(c *gin.Context, username, provider string) {
	Audit.Warn().
		Str("event", "login").
		Str("result", "failure").
		Str("username", username).
		Str("provider", provider).
		Str("ip", c.ClientIP()).
		Send()
}

func AuditLogout(c *gin.Context, username, provider string) {
	Audit.Info().
		Str("event", "logout").
		Str("result", "success").
		Str("username", username).
		Str("provider", provider).
		Str("ip", c.ClientIP()).
		Send()
}

// AuditTokenIssued records every access token handed out, by any grant.
func AuditTokenIssued(c *gin.Context, clientID, subject, grant string) {
	Audit.Info().
		Str("event", "token").
		Str("result", "success").
		Str("client_id", clientID).
		Str("subject", subject).
		Str("grant", grant).
		Str("ip", c.ClientIP()).
		Send()
}

func AuditTokenDenied(c *gin.Context, clientID, grant, reason string) {
	Audit.Warn().
		Str("event", "token").
		Str("result", "failure").
		Str("client_id", clientID).
		Str("grant", grant).
		Str("reason", reason).
		Str("ip", c.ClientIP()).
		Send()
}

func AuditCasValidate(c *gin.Context, service, username string, success bool) {
	event := Audit.Info()
	result := "success"

	if !success {
		event = Audit.Warn()
		result = "failure"
	}

	event.
		Str("event", "cas_validate").
		Str("result", result).
		Str("service", service).
		Str("username", username).
		Str("ip", c.ClientIP()).
		Send()
}
