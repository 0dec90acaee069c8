package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/supportpilot/internal/domain"
	apperrors "github.com/spec-kit/supportpilot/pkg/util/errorutil"
)

// Validator checks request payloads and reports failures per JSON field.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the ticket enum rules.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	rules := map[string]func(string) bool{
		"ticket_category": func(s string) bool { return domain.TicketCategory(s).Valid() },
		"ticket_priority": func(s string) bool { return domain.TicketPriority(s).Valid() },
		"ticket_channel":  func(s string) bool { return domain.TicketChannel(s).Valid() },
		"ticket_status":   func(s string) bool { return domain.TicketStatus(s).Valid() },
		"device_type":     func(s string) bool { return domain.DeviceType(s).Valid() },
	}
	for tag, ok := range rules {
		ok := ok
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return ok(fl.Field().String())
		})
	}
	return &Validator{validate: v}
}

// Struct validates req, returning a validation DomainError whose details map
// each failing field to a message.
func (v *Validator) Struct(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = message(fe)
	}
	return apperrors.NewValidationError("invalid payload", details)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "ticket_category":
		return "must be one of " + joinValues(domain.TicketCategories())
	case "ticket_priority":
		return "must be one of " + joinValues(domain.TicketPriorities())
	case "ticket_channel":
		return "must be one of " + joinValues(domain.TicketChannels())
	case "ticket_status":
		return "must be one of " + joinValues(domain.TicketStatuses())
	case "device_type":
		return "must be Desktop or Mobile"
	default:
		return "is invalid"
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
