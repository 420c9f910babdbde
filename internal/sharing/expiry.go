package sharing

import (
	"fmt"
	"time"
)

// ExpiryPolicy bounds share lifetimes. All methods are pure.
type ExpiryPolicy struct {
	MinHours int
	MaxHours int
}

// NewExpiryPolicy builds a policy from a minimum in hours and a maximum in days.
func NewExpiryPolicy(minHours, maxDays int) ExpiryPolicy {
	return ExpiryPolicy{MinHours: minHours, MaxHours: maxDays * 24}
}

// ValidateDuration rejects durations outside [MinHours, MaxHours].
// Out-of-range values are an error, never clamped.
func (p ExpiryPolicy) ValidateDuration(hours int) error {
	if hours < p.MinHours || hours > p.MaxHours {
		return validationError(fmt.Sprintf("Duration must be between %d and %d hours", p.MinHours, p.MaxHours))
	}
	return nil
}

// ComputeExpiry returns now + hours after validating the duration.
func (p ExpiryPolicy) ComputeExpiry(now time.Time, hours int) (time.Time, error) {
	if err := p.ValidateDuration(hours); err != nil {
		return time.Time{}, err
	}
	return now.Add(time.Duration(hours) * time.Hour), nil
}

// IsExpired reports whether expiresAt is strictly before now.
func IsExpired(expiresAt, now time.Time) bool {
	return expiresAt.Before(now)
}

// Extend pushes an expiry later by additionalHours, which must be positive.
func Extend(current time.Time, additionalHours int) (time.Time, error) {
	if additionalHours <= 0 {
		return time.Time{}, validationError("Additional hours must be positive")
	}
	return current.Add(time.Duration(additionalHours) * time.Hour), nil
}
