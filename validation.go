package auth

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

var (
	nameRe  = regexp.MustCompile(`^[A-Za-z\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

// DefaultPhoneRegion is the region used to parse phone numbers that carry
// no international prefix.
var DefaultPhoneRegion = "US"

// SignUpPayload is the sign-up request body.
type SignUpPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Phone    string `form:"phone" json:"phone"`
	Password string `form:"password" json:"password"`
	Image    string `form:"image" json:"image,omitempty"`
}

// Validate will run validation rules
func (r SignUpPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required,
			validation.Length(2, 0),
			validation.Match(nameRe).Error("must contain only letters and whitespace"),
		),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Phone,
			validation.Required,
			validation.Match(phoneRe).Error("must be 10 to 15 digits with an optional leading +"),
		),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
		validation.Field(&r.Image, is.URL),
	)
}

// SignInPayload is the sign-in request body. Exactly one of Email or Phone
// identifies the account.
type SignInPayload struct {
	Email    string `form:"email" json:"email,omitempty"`
	Phone    string `form:"phone" json:"phone,omitempty"`
	Password string `form:"password" json:"password"`
}

// Validate evaluates the whole payload in one pass. The identifier arity
// rule is cross-field: supplying both email and phone is rejected as
// ambiguous, supplying neither as missing. Field-level rules still run so
// every violation is reported together.
func (r SignInPayload) Validate() error {
	errs := validation.Errors{}

	hasEmail := strings.TrimSpace(r.Email) != ""
	hasPhone := strings.TrimSpace(r.Phone) != ""

	switch {
	case hasEmail && hasPhone:
		errs["identifier"] = errors.New("ambiguous identifier: supply either email or phone, not both")
	case !hasEmail && !hasPhone:
		errs["identifier"] = errors.New("missing identifier: either email or phone is required")
	}

	rules := []*validation.FieldRules{
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0)),
	}
	if hasEmail {
		rules = append(rules, validation.Field(&r.Email, is.Email))
	}
	if hasPhone {
		rules = append(rules, validation.Field(&r.Phone,
			validation.Match(phoneRe).Error("must be 10 to 15 digits with an optional leading +"),
		))
	}

	if err := validation.ValidateStruct(&r, rules...); err != nil {
		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			for field, ferr := range fieldErrs {
				errs[field] = ferr
			}
		} else {
			return err
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Identifier returns the canonical lookup key for a payload that passed
// validation.
func (r SignInPayload) Identifier() Identifier {
	if strings.TrimSpace(r.Email) != "" {
		return Identifier{Kind: IdentifierEmail, Value: strings.TrimSpace(r.Email)}
	}
	return Identifier{Kind: IdentifierPhone, Value: strings.TrimSpace(r.Phone)}
}

// NormalizePhone parses a raw phone number and formats it as E.164 so that
// storage and lookup always compare the same representation. Numbers
// without an international prefix are parsed against DefaultPhoneRegion.
func NormalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), DefaultPhoneRegion)
	if err != nil {
		return "", err
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for client responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, ferr := range fieldErrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}

// wrapValidationError converts ozzo errors into the structured
// ValidationFailed taxonomy entry.
func wrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ValidationFailed(FormatValidationErrorToMap(err))
}
