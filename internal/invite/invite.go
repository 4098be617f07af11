// Package invite generates short, human-enterable codes that resolve to a
// group. Codes are not globally unique by construction; the storage layer
// enforces uniqueness and callers retry on collision.
package invite

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet excludes visually ambiguous characters (I, O, 0, 1) so codes
// survive being read aloud or scribbled on a napkin.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of generated codes.
const CodeLength = 6

// Generate returns a random CodeLength-character code drawn uniformly
// from Alphabet.
func Generate() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// Normalize upper-cases and trims a user-entered code so lookups are
// case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Plausible reports whether s has the shape of an invite code: exactly
// CodeLength characters, all from Alphabet. Used to decide whether a group
// reference should be tried as a code before falling back to an ID lookup.
func Plausible(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}
