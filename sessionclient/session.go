package sessionclient

// State is the lifecycle state of the client session.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// User is the presentation-tier view of the logged-in user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Status is a point-in-time snapshot of the session.
//
// IsAuthenticated holds exactly when both a user and an access token are
// present: a stale persisted user without a token never counts as logged in.
type Status struct {
	IsAuthenticated bool
	User            *User
	IsLoading       bool
}

// LogoutResult reports what logout managed to do. Local state is always
// purged; RevokedRemotely records whether the server-side revoke call also
// succeeded, with RevokeErr carrying the failure for observability.
type LogoutResult struct {
	RevokedRemotely bool
	RevokeErr       error
}
