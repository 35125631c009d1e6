package binder

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var sortOrderRE = regexp.MustCompile(`^[A-Za-z][A-Za-z.]*(,(?i:asc|desc))?$`)

// sortOrderValidator accepts "field" or "field,asc|desc".
func sortOrderValidator(fl validator.FieldLevel) bool {
	return sortOrderRE.MatchString(fl.Field().String())
}
