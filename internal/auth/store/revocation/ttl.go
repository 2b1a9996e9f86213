// Package revocation keeps the list of revoked access-token IDs until the
// tokens would have expired anyway.
package revocation

import (
	"fmt"
	"time"

	"admission/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
