package utils

import (
	"strings"
	"unicode/utf8"
)

const MaxKeywordLength = 100

// NormalizeKeyword lowercases and trims a search keyword. Inner whitespace
// runs are collapsed to a single space.
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
}

// ValidateKeyword checks a normalized keyword.
func ValidateKeyword(keyword string) error {
	if keyword == "" {
		return &ValidationError{Field: "keyword", Message: "Keyword must not be empty"}
	}
	if utf8.RuneCountInString(keyword) > MaxKeywordLength {
		return &ValidationError{Field: "keyword", Message: "Keyword must be at most 100 characters"}
	}
	return nil
}

var (
	fieldKeyEscaper   = strings.NewReplacer("%", "%25", ".", "%2E", "$", "%24")
	fieldKeyUnescaper = strings.NewReplacer("%25", "%", "%2E", ".", "%24", "$")
)

// FieldKey makes a user-supplied string safe to use as a document field name.
// "%", "." and "$" are percent-encoded, so the mapping is reversible for any
// input.
func FieldKey(s string) string {
	return fieldKeyEscaper.Replace(s)
}

// FromFieldKey reverses FieldKey.
func FromFieldKey(s string) string {
	return fieldKeyUnescaper.Replace(s)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
