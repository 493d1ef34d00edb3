package dto

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RegisterValidations installs custom binding rules on gin's validator engine.
// Must be called once before the router starts serving.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("dto: unexpected gin validator engine")
	}
	return v.RegisterValidation("money", validMoney)
}

// validMoney accepts decimal strings such as "100000.00". Empty values pass
// so the rule composes with omitempty; required is a separate tag.
func validMoney(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}
