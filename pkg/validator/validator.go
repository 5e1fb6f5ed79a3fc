package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var checkStatuses = map[string]struct{}{
	"PASS":  {},
	"FAIL":  {},
	"WARN":  {},
	"ERROR": {},
	"SKIP":  {},
}

// isCronSpec accepts standard five-field cron expressions and descriptors
// such as "@every 1h" or "@daily".
func isCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// isCheckStatus accepts a known assessment status in any letter case.
func isCheckStatus(fl validator.FieldLevel) bool {
	_, ok := checkStatuses[strings.ToUpper(strings.TrimSpace(fl.Field().String()))]
	return ok
}

// RegisterCustomValidators registers custom validation functions with the validator.
func RegisterCustomValidators(validate *validator.Validate) error {
	if err := validate.RegisterValidation("cronspec", isCronSpec); err != nil {
		return fmt.Errorf("register cronspec: %w", err)
	}
	if err := validate.RegisterValidation("checkstatus", isCheckStatus); err != nil {
		return fmt.Errorf("register checkstatus: %w", err)
	}
	return nil
}
