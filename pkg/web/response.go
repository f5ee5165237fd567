// Package web defines common components for a web application.
package web

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Error wraps a given err into json friendly struct.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// Response holds the common response type for all APIs.
type Response struct {
	AccessToken          string `json:"access_token,omitempty"`
	AccessTokenExpiresAt string `json:"access_token_expires_at,omitempty"`
	Data                 any    `json:"data,omitempty"`
	Error                string `json:"error,omitempty"`
}

// GetErrorMsg returns a human readable message for the first failed validation.
func GetErrorMsg(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return ""
	}

	fe := ve[0]

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s field is required", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s field must be a valid uuid", fe.Field())
	case "nefield":
		return fmt.Sprintf("%s field must differ from %s", fe.Field(), fe.Param())
	case "alphanum":
		return fmt.Sprintf("%s field must contain only letters and digits", fe.Field())
	case "min":
		return fmt.Sprintf("%s field must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s field must be at most %s characters long", fe.Field(), fe.Param())
	}

	return fmt.Sprintf("%s field is invalid", fe.Field())
}
