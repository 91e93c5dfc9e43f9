package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var loginChars = regexp.MustCompile(`^[a-zA-Z0-9_.@-]+$`)

// RegisterValidators installs custom rules on gin's binding engine. Call once
// at startup before the router is built.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("login_chars", func(fl validator.FieldLevel) bool {
		return loginChars.MatchString(fl.Field().String())
	})
}
