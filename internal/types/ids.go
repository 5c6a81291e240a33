package types

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRunID generates a check-run identifier. UUIDv7 IDs sort by creation
// time, which keeps history listings and cache entries in run order.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRunID() RunID {
	return RunID(uuid.Must(uuid.NewV7()).String())
}

// ParseRunID validates s as a run ID and returns it in canonical
// lowercase form, so IDs typed by hand match the recorded ones.
func ParseRunID(s string) (RunID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid run ID %q: %w", s, err)
	}
	if u.Version() != 7 {
		return "", fmt.Errorf("invalid run ID %q: version %d, want 7", s, u.Version())
	}
	return RunID(u.String()), nil
}
