package world

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// MaxNameLen is the longest accepted player name, in runes.
const MaxNameLen = 16

var (
	ErrNameEmpty   = errors.New("name is empty")
	ErrNameTooLong = errors.New("name is too long")
	ErrNameInvalid = errors.New("name contains invalid characters")
)

// NormalizeName folds full-width forms to their narrow equivalents, composes
// to NFC and trims surrounding space. Control characters are rejected.
func NormalizeName(raw string) (string, error) {
	s := norm.NFC.String(width.Fold.String(raw))
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrNameEmpty
	}
	if utf8.RuneCountInString(s) > MaxNameLen {
		return "", ErrNameTooLong
	}
	for _, r := range s {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return "", ErrNameInvalid
		}
	}
	return s, nil
}
