package shared

import (
	"errors"
	"strings"
)

// ID types keep domain entities distinct while remaining simple strings at runtime.
type (
	ConnectionID string
	RoomID       string
)

// Validate ensures IDs are not blank and normalized.
func (id ConnectionID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return errors.New("connection id is required")
	}
	return nil
}

func (id RoomID) Validate() error {
	if strings.TrimSpace(string(id)) == "" {
		return errors.New("room id is required")
	}
	return nil
}
