// Package strings holds identifier casing helpers used for physical names.
package strings

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a CamelCase identifier to snake_case.
// Acronyms stay together (HTTPRequest -> http_request, PersonID -> person_id)
// and existing underscores are not doubled.
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if !unicode.IsUpper(r) {
			result.WriteRune(r)
			continue
		}
		if i > 0 && runes[i-1] != '_' {
			prev := runes[i-1]
			// boundary after a lowercase letter or digit, or at the last
			// capital of an acronym followed by a lowercase letter
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(unicode.ToLower(r))
	}
	return result.String()
}
