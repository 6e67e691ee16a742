// Package domainutil normalizes domain names before they are used as DNS
// query targets or compared for equality: IDN labels are converted to their
// ASCII punycode form and the whole name is case-folded, so that
// "EXAMPLE.com" and "example.com" (or a Unicode-homoglyph domain and its
// ASCII encoding) validate identically.
package domainutil

import (
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var profile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.Transitional(false),
)

var caser = cases.Fold()

// Normalize converts d to its case-folded ASCII (punycode) form. It returns
// an error if d contains a label that isn't validly IDN-encodable.
func Normalize(d string) (string, error) {
	ascii, err := profile.ToASCII(strings.TrimSuffix(d, "."))
	if err != nil {
		return "", err
	}
	return caser.String(ascii), nil
}

// IsWildcard reports whether d carries a "*." wildcard label.
func IsWildcard(d string) bool {
	return strings.HasPrefix(d, "*.")
}

// StripWildcard removes a leading "*." label, if present.
func StripWildcard(d string) string {
	return strings.TrimPrefix(d, "*.")
}
