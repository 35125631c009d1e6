package binder

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

const (
	mx        = "max"
	mn        = "min"
	oneof     = "oneof"
	required  = "required"
	sortOrder = "sortorder"
)

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case mx:
		return fmt.Sprintf("%q %s less than or equal to %s", field, boundSubject(err), err.Param())
	case mn:
		return fmt.Sprintf("%q %s greater than or equal to %s", field, boundSubject(err), err.Param())
	case oneof:
		valids := []string{}
		for _, p := range strings.Fields(err.Param()) {
			valids = append(valids, fmt.Sprintf("%q", p))
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(valids, ", "))
	case required:
		return fmt.Sprintf("%q is required", field)
	case sortOrder:
		return fmt.Sprintf("%q must be in the format of field or field,asc|desc", field)
	default:
		return fmt.Sprintf("%q failed the %q validation", field, err.Tag())
	}
}

// boundSubject returns the phrasing used for min/max, which reads differently
// for numbers than for strings and slices.
func boundSubject(err validator.FieldError) string {
	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "must be"
	default:
		return "length must be"
	}
}
