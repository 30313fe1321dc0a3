// Package services implements the dating domain on top of the repositories.
package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"heartmatch/apperr"
	"heartmatch/repositories"
)

// Realtime event names delivered through a Notifier.
const (
	EventNewMatch   = "newMatch"
	EventUnmatch    = "unmatch"
	EventNewMessage = "newMessage"
)

// Notifier delivers an event to every live connection of a user. Delivery is
// best effort: implementations log failures instead of returning them.
type Notifier interface {
	Notify(ctx context.Context, userID string, event string, payload any)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, userID string, event string, payload any)

func (f NotifierFunc) Notify(ctx context.Context, userID string, event string, payload any) {
	f(ctx, userID, event, payload)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and converts the first
// violation into a Validation error.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation(err.Error())
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperr.Validation(fmt.Sprintf("%s is required", field))
	case "min", "gte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return apperr.Validation(fmt.Sprintf("%s must have at least %s items or characters", field, fe.Param()))
		}
		return apperr.Validation(fmt.Sprintf("%s must be at least %s", field, fe.Param()))
	case "max", "lte":
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return apperr.Validation(fmt.Sprintf("%s must have at most %s items or characters", field, fe.Param()))
		}
		return apperr.Validation(fmt.Sprintf("%s must be at most %s", field, fe.Param()))
	case "oneof":
		return apperr.Validation(fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
	case "email":
		return apperr.Validation(fmt.Sprintf("%s must be a valid email", field))
	default:
		return apperr.Validation(fmt.Sprintf("%s is invalid", field))
	}
}

// storeErr maps a repository error onto the apperr taxonomy.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, repositories.ErrDuplicate):
		return apperr.Conflict("Already exists")
	default:
		return apperr.Internal("Server error", err)
	}
}
