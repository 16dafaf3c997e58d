package middleware

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "collisio/internal/errors"
	"collisio/internal/infrastructure"
)

// Validator checks request structs against their validate tags and reports
// failures under the form or JSON field names clients sent.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that names fields by their form, then json tag
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("runid", func(fl validator.FieldLevel) bool {
		return infrastructure.ValidRunID(fl.Field().String())
	})
	return &Validator{validate: v}
}

// ValidateStruct returns an *apierrors.APIError listing every failed field
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.ValidationErrors(fields)
}

// ContentTypeValidator rejects bodies whose Content-Type matches none of contentTypes
func ContentTypeValidator(handler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			handler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				apierrors.ErrUnsupportedMediaType.ErrorCode,
				apierrors.ErrUnsupportedMediaType.Message,
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "alphanum":
		return fmt.Sprintf("%s must contain only letters and digits", field)
	case "runid":
		return fmt.Sprintf("%s must be letters, digits and dashes, at most 64 long", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
