package ports

// TokenClaims carries the verified identity extracted from a token.
type TokenClaims struct {
	Subject string
	Role    string
}

// TokenService issues and verifies signed, time-bounded tokens.
// Verify returns domain.ErrInvalidToken for every rejection: callers cannot
// distinguish expired from malformed or forged tokens.
type TokenService interface {
	Issue(subject, role string) (string, error)
	Verify(token string) (TokenClaims, error)
}
