package service

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/ssoauth/ssoauth/internal/utils/tlog"
)

type CasVersion int

const (
	CasV1 CasVersion = iota + 1
	CasV2
)

const casNamespace = "http://www.yale.edu/tp/cas"

// accepted ticket prefixes, service tickets and proxy tickets
var ticketPrefixes = []string{"ST-", "SP-"}

type CasService struct {
	tokens *TokenService
	users  *UserService
}

func NewCasService(tokens *TokenService, users *UserService) *CasService {
	return &CasService{
		tokens: tokens,
		users:  users,
	}
}

func (cas *CasService) Init() error {
	return nil
}

// Validate consumes a service ticket and returns the username it was issued for.
func (cas *CasService) Validate(ctx context.Context, ticket string, service string) (string, error) {
	if ticket == "" {
		return "", InvalidRequest("Missing required parameter: ticket")
	}

	if service == "" {
		return "", InvalidRequest("Missing required parameter: service")
	}

	code, ok := stripTicketPrefix(ticket)

	if !ok {
		return "", InvalidGrant("Ill-formed authorization code")
	}

	authCode, err := cas.tokens.FindAuthorizationCode(ctx, code)

	if err != nil {
		return "", err
	}

	if authCode == nil || authCode.RedirectURI != service {
		return "", InvalidGrant("Invalid authorization code")
	}

	deleted, err := cas.tokens.DeleteAuthorizationCode(ctx, code)

	if err != nil {
		return "", err
	}

	if deleted == 0 {
		return "", InvalidGrant("Invalid authorization code")
	}

	user, err := cas.users.FindByID(ctx, authCode.UserID)

	if err != nil {
		return "", err
	}

	if user == nil {
		return "", InvalidGrant("Invalid authorization code")
	}

	tlog.App.Debug().Str("username", user.Username).Str("service", service).Msg("Service ticket validated")

	return user.Username, nil
}

func stripTicketPrefix(ticket string) (string, bool) {
	for _, prefix := range ticketPrefixes {
		if code, ok := strings.CutPrefix(ticket, prefix); ok && code != "" {
			return code, true
		}
	}
	return "", false
}

func (cas *CasService) RenderSuccess(version CasVersion, username string) string {
	if version == CasV1 {
		return fmt.Sprintf("yes\n%s\n", username)
	}

	return fmt.Sprintf(`<cas:serviceResponse xmlns:cas="%s"><cas:authenticationSuccess><cas:user>%s</cas:user></cas:authenticationSuccess></cas:serviceResponse>`,
		casNamespace, escapeXML(username))
}

func (cas *CasService) RenderFailure(version CasVersion, ticket string) string {
	if version == CasV1 {
		return "no\n\n"
	}

	return fmt.Sprintf(`<cas:serviceResponse xmlns:cas="%s"><cas:authenticationFailure code="INVALID_TICKET">Ticket %s not recognized</cas:authenticationFailure></cas:serviceResponse>`,
		casNamespace, escapeXML(ticket))
}

func escapeXML(str string) string {
	var buf bytes.Buffer
	// only fails when the writer does
	_ = xml.EscapeText(&buf, []byte(str))
	return buf.String()
}
