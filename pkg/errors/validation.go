package errors

import (
	"regexp"
	"unicode"
)

// MaxEntityIDLength bounds node ids accepted from the analysis collaborator
// and from the ops server.
const MaxEntityIDLength = 1024

// ValidateEntityID validates a node identifier.
//
// Identifiers come from static analysis (fully qualified symbol names, file
// paths) so almost anything printable is allowed. The rules only reject what
// cannot round-trip through logs, DOT output and URL path segments:
//   - No empty ids
//   - No control characters or null bytes
//   - Maximum length of [MaxEntityIDLength] bytes
func ValidateEntityID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}

	if len(id) > MaxEntityIDLength {
		return New(ErrCodeInvalidInput, "node id too long (max %d characters)", MaxEntityIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node id contains invalid control characters")
		}
	}

	return nil
}

// relationNameRegex matches relation names such as "declares" or "inherits-from".
var relationNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)

// ValidateRelationName validates a relation tag.
func ValidateRelationName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "relation name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "relation name too long (max 128 characters)")
	}
	if !relationNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid relation name: %q", name)
	}
	return nil
}
