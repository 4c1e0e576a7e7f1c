// Package validate holds the pure, store-free syntactic checks that run before any limiter.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Reason classifies a validation failure.
type Reason string

const (
	OK                Reason = ""
	InvalidFormat     Reason = "invalid_format"
	SuspiciousPattern Reason = "suspicious_pattern"
	TooLong           Reason = "too_long"
)

const (
	// DefaultMaxEmailLength follows RFC 5321.
	DefaultMaxEmailLength = 254
	// DefaultMaxContentLength matches the Discord message limit.
	DefaultMaxContentLength = 2000
)

var emailPattern = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$",
)

var defaultEmailDenylist = []string{
	`(?i)test.*@`,
	`(?i)fake.*@`,
	`(?i)spam.*@`,
	`(?i)temp.*@`,
	`(?i)disposable.*@`,
	`(?i)@.*\.tk$`,
	`(?i)@.*\.ml$`,
	`(?i)@.*\.ga$`,
	`(?i)@.*\.cf$`,
}

var defaultContentDenylist = []string{
	`(?i)https?://\S+\.tk\b`,
	`(?i)https?://\S+\.ml\b`,
	`(?i)https?://\S+\.ga\b`,
	`(?i)https?://\S+\.cf\b`,
	`(?i)\b(viagra|cialis|casino|lottery|winner|congratulations)\b`,
	`(?i)\b(click here|act now|limited time|urgent)\b`,
	`(?i)@everyone|@here`,
}

// Rules is an immutable validation rule set.
type Rules struct {
	maxEmailLength   int
	maxContentLength int
	emailDenylist    []*regexp.Regexp
	contentDenylist  []*regexp.Regexp
}

// Options configures [Compile]. Zero lengths fall back to the defaults; extra patterns are
// appended to the built-in denylists.
type Options struct {
	MaxEmailLength       int
	MaxContentLength     int
	ExtraEmailPatterns   []string
	ExtraContentPatterns []string
}

// Compile builds a rule set, failing on any invalid pattern.
func Compile(opts Options) (*Rules, error) {
	r := &Rules{
		maxEmailLength:   opts.MaxEmailLength,
		maxContentLength: opts.MaxContentLength,
	}
	if r.maxEmailLength <= 0 {
		r.maxEmailLength = DefaultMaxEmailLength
	}
	if r.maxContentLength <= 0 {
		r.maxContentLength = DefaultMaxContentLength
	}

	var err error
	if r.emailDenylist, err = compileAll(defaultEmailDenylist, opts.ExtraEmailPatterns); err != nil {
		return nil, err
	}
	if r.contentDenylist, err = compileAll(defaultContentDenylist, opts.ExtraContentPatterns); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns the built-in rule set.
func Default() *Rules {
	r, err := Compile(Options{})
	if err != nil {
		panic(err)
	}
	return r
}

func compileAll(base, extra []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(base)+len(extra))
	for _, p := range append(append([]string(nil), base...), extra...) {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Email validates a signup address.
func (r *Rules) Email(email string) Reason {
	email = strings.TrimSpace(email)
	if email == "" {
		return InvalidFormat
	}
	if len(email) > r.maxEmailLength {
		return TooLong
	}
	if !emailPattern.MatchString(email) {
		return InvalidFormat
	}
	if matchAny(r.emailDenylist, email) {
		return SuspiciousPattern
	}
	return OK
}

// Content validates notification text.
func (r *Rules) Content(text string) Reason {
	if strings.TrimSpace(text) == "" {
		return InvalidFormat
	}
	if utf8.RuneCountInString(text) > r.maxContentLength {
		return TooLong
	}
	if matchAny(r.contentDenylist, text) {
		return SuspiciousPattern
	}
	return OK
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
