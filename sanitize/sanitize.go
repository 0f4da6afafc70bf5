// Package sanitize validates untrusted strings extracted from
// certificates and requests before they reach HTML admin pages.
package sanitize

import (
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/microcosm-cc/bluemonday"
)

// MaxLength is the maximum number of characters in a value
const MaxLength = 250

// ErrIllegalContent is returned when a value does not survive the
// links-only content policy unchanged
var ErrIllegalContent = errors.New("string contained illegal content")

// ErrNull is returned for an absent value
var ErrNull = errors.New("null string value")

// links-only policy: <a href> with standard URLs
var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Validate checks s against the length limit and the content policy.
// When maskEmailAt is set, '@' is replaced before the content check
// so that e-mail shaped values are not rejected.
// On success the original value is returned.
func Validate(s string, maskEmailAt bool) (string, error) {
	if n := utf8.RuneCountInString(s); n > MaxLength {
		return "", errors.Errorf("string too long (%d) characters exceeds maximum of %d characters", n, MaxLength)
	}

	check := s
	if maskEmailAt {
		check = strings.ReplaceAll(check, "@", "A")
	}
	if policy.Sanitize(check) != check {
		return "", ErrIllegalContent
	}
	return s, nil
}

// ValidateValue is the same as Validate, but reports an absent value
func ValidateValue(v *string, maskEmailAt bool) (string, error) {
	if v == nil {
		return "", ErrNull
	}
	return Validate(*v, maskEmailAt)
}
