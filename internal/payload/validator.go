// Package payload checks inbound envelopes before the relay acts on
// them and sanitizes the strings it echoes to other clients.
package payload

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"whiteboard-relay/internal/domain"
)

// ErrMalformed marks an envelope that is dropped without reply
var ErrMalformed = errors.New("malformed event")

// Validator: validation and sanitization of relay envelopes
type Validator struct {
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("roomid", validRoomID)

	return &Validator{
		validate:  v,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// validRoomID: printable UTF-8, no surrounding space, bounded length
func validRoomID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) > MaxRoomLength || !utf8.ValidString(s) || strings.TrimSpace(s) != s {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// Check: validates env against the schema for its type. The returned
// error wraps ErrMalformed.
func (v *Validator) Check(env *domain.Envelope) error {
	schema := schemaFor(env)
	if schema == nil {
		return fmt.Errorf("%w: unknown event type %q", ErrMalformed, env.Type)
	}

	if err := v.validate.Struct(schema); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return fmt.Errorf("%w: %s %s", ErrMalformed, env.Type, formatValidationErrors(validationErrors))
		}
		return fmt.Errorf("%w: %s: %v", ErrMalformed, env.Type, err)
	}
	return nil
}

// Sanitize: strips markup from the strings other clients will render
func (v *Validator) Sanitize(env *domain.Envelope) {
	env.UserID = v.Identity(env.UserID)
	if env.Stroke != nil {
		env.Stroke.Color = v.stripMarkup(env.Stroke.Color)
	}
}

// Identity: sanitized, trimmed identity; empty input stays empty
func (v *Validator) Identity(raw string) string {
	id := strings.TrimSpace(v.stripMarkup(raw))
	if len(id) > MaxIdentityLength {
		id = id[:MaxIdentityLength]
		for !utf8.ValidString(id) {
			id = id[:len(id)-1]
		}
	}
	return id
}

// stripMarkup removes tags but leaves the remaining text unescaped.
// Entities that decode into new markup are stripped on the next round.
func (v *Validator) stripMarkup(s string) string {
	for i := 0; i < 3; i++ {
		out := html.UnescapeString(v.sanitizer.Sanitize(s))
		if out == s {
			return s
		}
		s = out
	}
	return v.sanitizer.Sanitize(s)
}

// formatValidationErrors: first failing field only
func formatValidationErrors(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "invalid"
	}
	return formatSingleError(errs[0])
}

func formatSingleError(err validator.FieldError) string {
	field := err.Namespace()
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", field)
	case "min", "max":
		return fmt.Sprintf("'%s' value out of allowed range", field)
	case "roomid":
		return fmt.Sprintf("'%s' is not a valid room id", field)
	default:
		return fmt.Sprintf("'%s' is invalid", field)
	}
}
