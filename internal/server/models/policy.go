package models

// Default lockout policy.
const (
	DefaultMaxFailedAttempts uint32   = 5
	DefaultLockoutDuration   Duration = 900
)

// Policy controls brute-force lockout.
type Policy struct {
	MaxFailedAttempts uint32
	LockoutDuration   Duration
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		LockoutDuration:   DefaultLockoutDuration,
	}
}

// AuditRecord is a persisted registry event.
type AuditRecord struct {
	Kind       string
	Payload    []byte
	OccurredAt Timestamp
}
