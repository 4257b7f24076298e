// Package validate applies the fixed field rules from the external
// interface contract, collecting violations into apperror.ValidationErrors
// rather than failing fast on the first one.
package validate

import (
	"net/mail"
	"regexp"
	"time"

	"github.com/lumicast/core/internal/apperror"
)

var (
	nicknameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
	// passwordRe requires at least one letter and one digit, in either order.
	passwordLetterRe = regexp.MustCompile(`[A-Za-z]`)
	passwordDigitRe  = regexp.MustCompile(`[0-9]`)
)

// Collector accumulates field errors across a single request's validation.
type Collector struct {
	errs apperror.ValidationErrors
}

func (c *Collector) add(field, code, message string) {
	c.errs = append(c.errs, apperror.FieldError{Field: field, Code: code, Message: message})
}

// Err returns the accumulated errors, or nil if none were recorded.
func (c *Collector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

// Nickname validates a required nickname field.
func (c *Collector) Nickname(field, value string) {
	if l := len(value); l < 3 || l > 64 {
		c.add(field, "length", "must be 3 to 64 characters")
		return
	}
	if !nicknameRe.MatchString(value) {
		c.add(field, "format", "must start with a letter and contain only letters, digits, underscore")
	}
}

// Email validates a required email field.
func (c *Collector) Email(field, value string) {
	if l := len(value); l < 5 || l > 254 {
		c.add(field, "length", "must be 5 to 254 characters")
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		c.add(field, "format", "must be a valid email address")
	}
}

// Password validates a required password field.
func (c *Collector) Password(field, value string) {
	if l := len(value); l < 6 || l > 64 {
		c.add(field, "length", "must be 6 to 64 characters")
		return
	}
	if !passwordLetterRe.MatchString(value) || !passwordDigitRe.MatchString(value) {
		c.add(field, "format", "must contain at least one letter and one digit")
	}
}

// NewPassword validates new_password and its inequality with the old value.
func (c *Collector) NewPassword(field, value, oldValue string) {
	c.Password(field, value)
	if value == oldValue {
		c.add(field, apperror.CodeNewPasswordEqualOld, "new password must differ from the current password")
	}
}

// OptionalRange validates an optional field's length when present.
func (c *Collector) OptionalRange(field string, value *string, min, max int) {
	if value == nil {
		return
	}
	if l := len(*value); l < min || l > max {
		c.add(field, "length", "out of allowed range")
	}
}

// RequiredRange validates a required field's length.
func (c *Collector) RequiredRange(field, value string, min, max int) {
	if l := len(value); l < min || l > max {
		c.add(field, "length", "out of allowed range")
	}
}

// StartTime validates that t is not in the past.
func (c *Collector) StartTime(field string, t time.Time) {
	if t.Before(time.Now()) {
		c.add(field, "range", "must not be in the past")
	}
}

// OneOf validates that value is a member of allowed.
func (c *Collector) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.add(field, "format", "not a recognized value")
}

// Tags validates the count and per-tag length of a stream's tag set.
func (c *Collector) Tags(field string, tags []string) {
	if l := len(tags); l < 1 || l > 8 {
		c.add(field, "length", "must supply 1 to 8 tags")
		return
	}
	for _, t := range tags {
		if l := len(t); l < 2 || l > 64 {
			c.add(field, "length", "each tag must be 2 to 64 characters")
			return
		}
	}
}
