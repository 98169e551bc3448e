// Package reqctx carries the authenticated Session capability through
// context.Context. Transports verify a token once, attach the session, and
// every service operation reads it from there.
package reqctx

import (
	"context"

	"github.com/carelog/carelog_backend/internal/model"
)

// Session is the capability every care service call is checked against:
// who is calling, from which hospital, in which role. It is minted by
// Authenticate and round-trips through an access token.
type Session struct {
	UserID     string
	HospitalID string
	Role       model.Role
}

type ctxKey int

const keySession ctxKey = iota

// WithSession stores the session in the context.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, keySession, sess)
}

// SessionFromContext retrieves the session, or nil if the request is not
// authenticated.
func SessionFromContext(ctx context.Context) *Session {
	v := ctx.Value(keySession)
	if v == nil {
		return nil
	}
	sess, ok := v.(*Session)
	if !ok {
		return nil
	}
	return sess
}

// MustSession retrieves the session and panics if absent. For call sites
// behind an auth middleware that guarantees it.
func MustSession(ctx context.Context) *Session {
	sess := SessionFromContext(ctx)
	if sess == nil {
		panic("reqctx: session not found in context")
	}
	return sess
}
