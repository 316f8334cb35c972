package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hygiapro/bookings/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return utils.IsPhoneChars(fl.Field().String())
	})
	_ = v.RegisterValidation("booking_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("slot_time", func(fl validator.FieldLevel) bool {
		return IsValidSlot(fl.Field().String())
	})
	return v
}

// Validate checks struct tags and returns a *ValidationError on failure.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		key := fieldKey(fe.Namespace())
		if _, seen := out.Fields[key]; !seen {
			out.Fields[key] = fieldMessage(fe)
		}
	}
	return out
}

// fieldKey drops the root struct name: "BookingInput.services[0].name" -> "services[0].name".
func fieldKey(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	isList := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isList {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "phone":
		return "may only contain digits, spaces, +, -, ( and )"
	case "booking_date":
		return "must be a date in YYYY-MM-DD format"
	case "slot_time":
		return "must be one of the available time slots"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return "is invalid"
	}
}

// Normalize trims user input in place before validation.
func (in *BookingInput) Normalize() {
	in.CustomerName = utils.NormalizeString(in.CustomerName)
	in.CustomerEmail = utils.NormalizeEmail(in.CustomerEmail)
	in.CustomerPhone = utils.NormalizePhone(in.CustomerPhone)
	in.CustomerAddress = utils.NormalizeString(in.CustomerAddress)
	in.Notes = utils.NormalizeString(in.Notes)
	in.BookingDate = utils.NormalizeString(in.BookingDate)
	in.BookingTime = utils.NormalizeString(in.BookingTime)
	for i := range in.Services {
		in.Services[i].Name = utils.NormalizeString(in.Services[i].Name)
	}
}

func (m *ContactMessage) Normalize() {
	m.Name = utils.NormalizeString(m.Name)
	m.Email = utils.NormalizeEmail(m.Email)
	m.Phone = utils.NormalizePhone(m.Phone)
	m.Subject = utils.NormalizeString(m.Subject)
	m.Message = utils.NormalizeString(m.Message)
}
