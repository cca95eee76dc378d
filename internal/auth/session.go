package auth

import "context"

const RoleAdmin = "admin"

// Session is an authenticated caller. Token is the raw bearer credential,
// forwarded as-is to the collaborator services.
type Session struct {
	UserID string
	Email  string
	Role   string
	Token  string
}

func NewSession(token string, claims *Claims) Session {
	return Session{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
		Token:  token,
	}
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

type contextKey struct{}

// WithSession stores s in ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SessionFrom returns the session stored by WithSession
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
