package model

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ValueLength is the exact number of characters in a scanned value.
const ValueLength = 10

// DisplayTimeLayout renders timestamps in verdict messages and listings.
const DisplayTimeLayout = "January 02, 2006 at 15:04:05"

// ValidateValue checks that s is exactly ValueLength characters.
// No trimming, case folding or normalization is applied.
func ValidateValue(s string) error {
	if n := utf8.RuneCountInString(s); n != ValueLength {
		return &Error{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("value must be %d characters, got %d", ValueLength, n),
			Value:   s,
		}
	}
	return nil
}

// FormatDisplayTime formats t with DisplayTimeLayout.
func FormatDisplayTime(t time.Time) string {
	return t.Format(DisplayTimeLayout)
}
