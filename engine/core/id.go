package core

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/segmentio/ksuid"
)

// ID is a KSUID rendered as its 27 character base62 string. KSUIDs embed a
// timestamp, so lexical order follows creation order.
type ID string

func (c ID) String() string {
	return string(c)
}

func (c ID) IsZero() bool {
	return c == ""
}

// Value stores the ID as plain text in every SQL driver.
func (c ID) Value() (driver.Value, error) {
	return string(c), nil
}

// Ptr returns a pointer to a copy of the ID, handy for optional actor fields.
func (c ID) Ptr() *ID {
	return &c
}

// NewID generates a new KSUID-backed ID.
func NewID() (ID, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating id: %w", err)
	}
	return ID(id.String()), nil
}

// MustNewID panics when the random source is unavailable.
func MustNewID() ID {
	id, err := NewID()
	if err != nil {
		panic(err)
	}
	return id
}

// ParseID validates s as a KSUID and returns it as an ID.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", errors.New("empty ID")
	}
	parsed, err := ksuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return ID(parsed.String()), nil
}
