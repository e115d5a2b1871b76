package auth

import "github.com/golang-jwt/jwt/v5"

// CallerClaims is the bearer token an integrating backend presents on behalf
// of one of its end users. The subject is the client_user_id sent to Plaid.
type CallerClaims struct {
	jwt.RegisteredClaims
}

// ClientUserID returns the end-user identifier carried in the subject claim.
func (c *CallerClaims) ClientUserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
