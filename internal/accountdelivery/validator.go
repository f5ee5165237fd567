package accountdelivery

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,64}$`)

// ValidUsername validates that the username is 3 to 64 letters, digits, dots, dashes or underscores.
var ValidUsername validator.Func = func(fl validator.FieldLevel) bool {
	if u, ok := fl.Field().Interface().(string); ok {
		return usernameRegexp.MatchString(u)
	}
	return false
}

// RegisterValidators registers the custom binding tags used by the handlers.
func RegisterValidators() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return v.RegisterValidation("username", ValidUsername)
	}

	return nil
}
