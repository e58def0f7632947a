package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxItemIDLength bounds item identities accepted from files and requests.
const maxItemIDLength = 256

// ValidateItemID validates an item identity read from external input.
//
// The validation rules are intentionally conservative:
//   - No empty identities
//   - No control characters or null bytes
//   - Maximum length of 256 characters
func ValidateItemID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidItem, "item id cannot be empty")
	}

	if len(id) > maxItemIDLength {
		return New(ErrCodeInvalidItem, "item id too long (max %d characters)", maxItemIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidItem, "item id contains invalid control characters")
		}
	}

	return nil
}

// ValidateColumns checks a user-supplied column count. The packer itself
// tolerates non-positive counts; the CLI and API reject them as a typo.
func ValidateColumns(n int) error {
	if n < 1 {
		return New(ErrCodeInvalidConfig, "columns must be at least 1, got %d", n)
	}
	const maxColumns = 1024
	if n > maxColumns {
		return New(ErrCodeInvalidConfig, "columns too large (max %d), got %d", maxColumns, n)
	}
	return nil
}

// ValidateSpacing checks a user-supplied spacing value.
func ValidateSpacing(s float64) error {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return New(ErrCodeInvalidConfig, "spacing must be a non-negative number, got %v", s)
	}
	return nil
}

// ValidatePath validates a file path supplied to the CLI.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateFormat checks an output format against the supported set.
func ValidateFormat(format string, supported ...string) error {
	for _, s := range supported {
		if strings.EqualFold(format, s) {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(supported, ", "))
}
