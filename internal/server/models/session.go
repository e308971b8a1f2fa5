package models

// Session is an ephemeral login session keyed by an opaque token.
// Active only ever moves from true to false.
type Session struct {
	Token     string
	Owner     AccountRef
	CreatedAt Timestamp
	ExpiresAt Timestamp
	Active    bool
}

// Expired reports whether the session is past its expiry at now.
// A session is still valid at exactly ExpiresAt.
func (s *Session) Expired(now Timestamp) bool {
	return now > s.ExpiresAt
}
