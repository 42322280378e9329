package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	ApplicationID ID
	AuditID       ID
)

func (id ApplicationID) String() string { return ID(id).String() }
func (id AuditID) String() string       { return ID(id).String() }

// IsEmpty checks if the application ID is empty
func (id ApplicationID) IsEmpty() bool { return ID(id).IsEmpty() }

const applicationIDPrefix = "APP"

// NewApplicationID builds a reference number of the form APP-YYYYMMDD-XXXXXXXX,
// where the suffix is the first eight hex characters of a random UUID, uppercased.
func NewApplicationID(now time.Time) ApplicationID {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return ApplicationID(fmt.Sprintf("%s-%s-%s", applicationIDPrefix, now.Format("20060102"), suffix))
}

// NewAuditID builds an audit identifier of the form TEST-YYYYMMDDhhmmss-xxxx.
// The trailing random block keeps audits taken within the same second distinct.
func NewAuditID(now time.Time) AuditID {
	return AuditID(fmt.Sprintf("TEST-%s-%s", now.Format("20060102150405"), uuid.New().String()[:4]))
}

// ParseApplicationID parses a string into ApplicationID
func ParseApplicationID(s string) (ApplicationID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: application ID cannot be empty", ErrInvalidInput)
	}
	return ApplicationID(strings.TrimSpace(s)), nil
}

// IDGenerator produces application identifiers. The clock is injectable so
// tests can pin the date component.
type IDGenerator struct {
	now func() time.Time
}

// NewIDGenerator returns a generator reading the wall clock
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorWithClock returns a generator reading the given clock
func NewIDGeneratorWithClock(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// NewApplicationID returns a fresh application identifier
func (g *IDGenerator) NewApplicationID() ApplicationID {
	return NewApplicationID(g.now())
}
