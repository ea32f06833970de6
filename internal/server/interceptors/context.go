package interceptors

import "context"

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// Identity is the authenticated caller as asserted by a verified access token.
type Identity struct {
	UserID   string
	Username string
	Roles    []string
}

// WithIdentity returns a context carrying the caller's identity.
// Handlers and the role gate read it via GetIdentity, GetUserID, GetRoles.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the identity from context and true if set; otherwise a zero Identity, false.
func GetIdentity(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	return v, ok
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}

// GetRoles returns the caller's role claims and true if an identity is set.
func GetRoles(ctx context.Context) ([]string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok {
		return nil, false
	}
	return id.Roles, true
}
