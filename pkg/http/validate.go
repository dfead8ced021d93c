package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidator()

// newValidator reports fields by their wire name (json, then param, then query tag).
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "param", "query"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// ReadAndValidateRequest binds path, query and body into req, applies default tags and validates it.
// A nil result means the request is usable.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

func toValidationErrors(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fieldPath(fe),
				Message: describe(fe),
				Params:  params(fe),
			})
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_MALFORMED", Message: msg}}
}

// fieldPath drops the root struct name: "ResultSetRequest.tickers[0]" becomes "tickers[0]".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

func describe(fe validator.FieldError) string {
	field, p := fe.Field(), fe.Param()
	unit := ""
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Map:
		unit = " items"
	}

	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must have at least %s%s", field, p, unit)
	case "max", "lte":
		return fmt.Sprintf("%s must have at most %s%s", field, p, unit)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, p)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, p)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(p, " ", ", "))
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func params(fe validator.FieldError) map[string]interface{} {
	p := fe.Param()
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": p}
	case "max", "lte":
		return map[string]interface{}{"max": p}
	case "gt", "lt":
		return map[string]interface{}{"value": p}
	case "oneof":
		return map[string]interface{}{"options": strings.Fields(p)}
	}
	return nil
}
