package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"recipebox/internal/types"
)

// Validator wraps go-playground/validator and reports failures as
// AppErrors naming the JSON field.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator that reports fields by their JSON name.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// ValidateStruct returns nil or a *types.AppError for the first failing
// field: validation_missing_required_field for required rules,
// validation_invalid_value otherwise.
func (val *Validator) ValidateStruct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidValue, "invalid request", err)
	}

	fe := fieldErrs[0]
	field := fieldPath(fe)
	details := map[string]any{"field": field, "rule": fe.Tag()}

	if strings.HasPrefix(fe.Tag(), "required") {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			field+" is required", nil, details)
	}
	msg := fmt.Sprintf("%s failed %s", field, fe.Tag())
	if fe.Param() != "" {
		msg += "=" + fe.Param()
		details["param"] = fe.Param()
	}
	return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidValue, msg, nil, details)
}

// fieldPath strips the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}
