// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizeE164 formats a phone number to E.164 using the given default region.
// If parsing fails or the number is invalid, it returns the trimmed input so
// callers can still store what the field officer captured.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether the input parses as a valid number for the region.
func IsValid(input, region string) bool {
	number, err := phonenumbers.Parse(strings.TrimSpace(input), region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(number)
}
