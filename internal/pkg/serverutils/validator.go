package serverutils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"avatar-engine-be/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateRequest runs struct tag validation and reports the first failing
// field as a ValidationError.
func ValidateRequest(req any) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.NewValidationError("", err.Error())
	}

	first := verrs[0]
	field := strings.TrimPrefix(first.Namespace(), rootName(first.Namespace())+".")
	msg := fmt.Sprintf("failed on '%s'", first.Tag())
	if first.Param() != "" {
		msg = fmt.Sprintf("failed on '%s=%s'", first.Tag(), first.Param())
	}
	return apperror.NewValidationError(field, msg)
}

func rootName(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[:i]
	}
	return ns
}
