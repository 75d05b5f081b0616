// Package identity centralizes cart ownership scoping. Every cart read or
// write resolves its scoping key through this package so registered-user and
// anonymous-session carts can never leak into each other.
package identity

// Kind discriminates the scoping key variants.
type Kind int

const (
	// KindNone means no scoping key was supplied; reads are empty,
	// writes are no-ops.
	KindNone Kind = iota
	// KindUser scopes by registered account id.
	KindUser
	// KindSession scopes by opaque anonymous session token.
	KindSession
)

// Key is the resolved identity scoping key for one request.
type Key struct {
	kind      Kind
	userID    int64
	sessionID string
}

// Resolve builds a Key from the two independently-optional request fields.
// A user id wins when both are present.
func Resolve(userID *int64, sessionID *string) Key {
	if userID != nil && *userID != 0 {
		return Key{kind: KindUser, userID: *userID}
	}
	if sessionID != nil && *sessionID != "" {
		return Key{kind: KindSession, sessionID: *sessionID}
	}
	return Key{kind: KindNone}
}

// ByUser builds a user-scoped key.
func ByUser(userID int64) Key {
	return Key{kind: KindUser, userID: userID}
}

// BySession builds a session-scoped key.
func BySession(sessionID string) Key {
	return Key{kind: KindSession, sessionID: sessionID}
}

// Kind returns the key variant.
func (k Key) Kind() Kind {
	return k.kind
}

// IsNone reports whether no scoping key is present.
func (k Key) IsNone() bool {
	return k.kind == KindNone
}

// UserID returns the account id and whether the key is user-scoped.
func (k Key) UserID() (int64, bool) {
	return k.userID, k.kind == KindUser
}

// SessionID returns the session token and whether the key is session-scoped.
func (k Key) SessionID() (string, bool) {
	return k.sessionID, k.kind == KindSession
}

// Columns returns the owner columns for cart rows under this key: the
// nullable user id and session token, exactly one of which is set.
func (k Key) Columns() (userID *int64, sessionID *string) {
	switch k.kind {
	case KindUser:
		uid := k.userID
		return &uid, nil
	case KindSession:
		sid := k.sessionID
		return nil, &sid
	}
	return nil, nil
}
