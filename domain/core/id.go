package core

import (
	"fmt"
	"strings"

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

// JobID identifies one uploaded spreadsheet across the upload, process and export steps
type JobID ID

func (id JobID) String() string { return ID(id).String() }

// NewJobID returns a fresh JobID
func NewJobID() JobID {
	return JobID(NewID())
}

// ParseJobID validates a job id coming back from a form. Only canonical UUIDs are
// accepted so the value is safe to use as a file name prefix.
func ParseJobID(s string) (JobID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("job ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil || id.String() != s {
		return "", fmt.Errorf("invalid job ID %q", s)
	}
	return JobID(s), nil
}

// ShortSuffix returns the first 8 characters of a fresh random id, used to keep
// generated file names unique within the same second.
func ShortSuffix() string {
	return uuid.New().String()[:8]
}
