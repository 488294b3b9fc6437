package internal

import (
	"context"
	"time"
)

type ctxKey string

const contextCallerKey ctxKey = "caller"

// Caller is the resolved identity of the authenticated actor for one request.
// It is constructed once at the authentication boundary and passed explicitly
// so that services never reach back into ambient request state.
type Caller struct {
	UserID      string
	Email       string
	Name        string
	Role        string
	Roles       []string
	TokenHash   string
	Permissions []string
}

func (c *Caller) HasRole(role string) bool {
	if c == nil {
		return false
	}
	if c.Role == role {
		return true
	}
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func CallerFromContext(ctx context.Context) (*Caller, bool) {
	if ctx == nil {
		return nil, false
	}
	caller, ok := ctx.Value(contextCallerKey).(*Caller)
	return caller, ok && caller != nil
}

func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, contextCallerKey, caller)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
