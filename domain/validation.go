package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps "Field.tag" to the message shown to the caller.
var fieldMessages = map[string]string{
	"Email.required":           "Please provide an email.",
	"Email.email":              "Please provide a valid email address.",
	"Password.required":        "Please provide a password",
	"Password.min":             "Password must have more or equal to 8 characters.",
	"Password.max":             "Password must have less or equal to 16 characters.",
	"PasswordConfirm.required": "Please confirm your password",
	"PasswordConfirm.eqfield":  "Passwords are not the same.",
	"Username.min":             "Username must have at least 3 characters.",
	"Username.max":             "Username must have at most 30 characters.",
	"Username.alphanum":        "Username may only contain letters and digits.",
	"Name.max":                 "Name must have at most 100 characters.",
}

// Validate checks v against its validate tags and returns a ValidationError
// listing every failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewInternalError(err)
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
			messages = append(messages, msg)
			continue
		}
		messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
	}
	return NewValidationError(messages...)
}

// ValidRole reports whether role is a known account role.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
