package wizard

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/ettle/strcase"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phonePattern    = regexp.MustCompile(`^09\d{9}$`)
	lowerPattern    = regexp.MustCompile(`[a-z]`)
	upperPattern    = regexp.MustCompile(`[A-Z]`)
	digitPattern    = regexp.MustCompile(`\d`)
)

const msgInvalidValue = "Invalid value"

// RuleValidator validates step data with ozzo-validation rule sets. It holds
// no mutable state, so a single instance can be shared.
type RuleValidator struct {
	translator TranslationService
}

// NewRuleValidator builds the default step validator. The translator may be nil.
func NewRuleValidator(translator TranslationService) *RuleValidator {
	return &RuleValidator{translator: translator}
}

// Validate checks data against the rules of step.
func (v *RuleValidator) Validate(ctx context.Context, step StepID, data map[string]any) ValidationResult {
	var (
		bad map[string]bool
		err error
	)
	switch step {
	case StepAccount:
		var rec AccountRecord
		bad = decodeRecord(data, &rec)
		err = validateAccount(&rec)
	case StepPersonal:
		var rec PersonalRecord
		bad = decodeRecord(data, &rec)
		err = validatePersonal(&rec)
	case StepAdvanced:
		var rec AdvancedRecord
		bad = decodeRecord(data, &rec)
		err = validateAdvanced(&rec)
	default:
		return ValidationResult{
			Valid:       false,
			FieldErrors: map[string]string{"step": fmt.Sprintf("Unknown step %q", step)},
		}
	}
	return v.result(ctx, step, bad, err)
}

func (v *RuleValidator) result(ctx context.Context, step StepID, bad map[string]bool, err error) ValidationResult {
	fieldErrors := map[string]string{}
	locale := LocaleFromContext(ctx)
	if errs, ok := err.(validation.Errors); ok {
		for field, fieldErr := range errs {
			code, message := "invalid", fieldErr.Error()
			if coded, ok := fieldErr.(validation.Error); ok {
				code, message = coded.Code(), coded.Message()
			}
			key := fmt.Sprintf("wizard.%s.%s.%s", step, strcase.ToSnake(field), code)
			fieldErrors[field] = translateOrFallback(ctx, v.translator, key, locale, message, nil)
		}
	} else if err != nil {
		fieldErrors["step"] = err.Error()
	}
	for _, field := range sortedKeys(bad) {
		key := fmt.Sprintf("wizard.%s.%s.type", step, strcase.ToSnake(field))
		fieldErrors[field] = translateOrFallback(ctx, v.translator, key, locale, msgInvalidValue, nil)
	}
	return ValidationResult{Valid: len(fieldErrors) == 0, FieldErrors: fieldErrors}
}

func validateAccount(rec *AccountRecord) error {
	return validation.ValidateStruct(rec,
		validation.Field(&rec.Username,
			coded(validation.Required, "required", "Username is required"),
			coded(validation.RuneLength(3, 0), "min_length", "Username must be at least 3 characters"),
			coded(validation.Match(usernamePattern), "pattern", "Username may only contain letters, digits and underscores"),
		),
		validation.Field(&rec.Email,
			coded(validation.Required, "required", "Email is required"),
			coded(is.EmailFormat, "email", "Enter a valid email address"),
		),
		validation.Field(&rec.Password,
			coded(validation.Required, "required", "Password is required"),
			coded(validation.RuneLength(8, 0), "min_length", "Password must be at least 8 characters"),
			coded(validation.Match(lowerPattern), "complexity", "Password must contain lowercase, uppercase and a digit"),
			coded(validation.Match(upperPattern), "complexity", "Password must contain lowercase, uppercase and a digit"),
			coded(validation.Match(digitPattern), "complexity", "Password must contain lowercase, uppercase and a digit"),
		),
		validation.Field(&rec.ConfirmPassword,
			coded(validation.Required, "required", "Password confirmation is required"),
			coded(validation.In(rec.Password), "mismatch", "Passwords do not match"),
		),
		validation.Field(&rec.Phone,
			coded(validation.Required, "required", "Phone number is required"),
			coded(validation.Match(phonePattern), "pattern", "Phone number must start with 09 and have 11 digits"),
		),
		validation.Field(&rec.Website,
			coded(validation.Required, "required", "Website is required"),
			coded(is.RequestURL, "url", "Enter a valid URL"),
		),
	)
}

func validatePersonal(rec *PersonalRecord) error {
	return validation.ValidateStruct(rec,
		validation.Field(&rec.FirstName,
			coded(validation.Required, "required", "First name is required"),
			coded(validation.RuneLength(2, 0), "min_length", "First name must be at least 2 characters"),
		),
		validation.Field(&rec.LastName,
			coded(validation.Required, "required", "Last name is required"),
			coded(validation.RuneLength(2, 0), "min_length", "Last name must be at least 2 characters"),
		),
		validation.Field(&rec.Country, coded(validation.Required, "required", "Country is required")),
		validation.Field(&rec.Language, coded(validation.Required, "min_items", "Select at least one language")),
		validation.Field(&rec.Gender, coded(validation.Required, "required", "Gender is required")),
		validation.Field(&rec.BirthDate, coded(validation.Required, "required", "Birth date is required")),
		validation.Field(&rec.RegistrationDate, coded(validation.Required, "required", "Registration date is required")),
		validation.Field(&rec.Experience, coded(validation.Required, "required", "Experience level is required")),
		validation.Field(&rec.Skills, coded(validation.Required, "min_items", "Select at least one skill")),
		validation.Field(&rec.Newsletter, coded(validation.NotNil, "boolean", "Newsletter preference must be set")),
		validation.Field(&rec.Terms, coded(validation.NotNil, "boolean", "Terms acceptance must be set")),
	)
}

func validateAdvanced(rec *AdvancedRecord) error {
	return validation.ValidateStruct(rec,
		validation.Field(&rec.Bio,
			coded(validation.Required, "required", "Bio is required"),
			coded(validation.RuneLength(10, 0), "min_length", "Bio must be at least 10 characters"),
			coded(validation.RuneLength(0, 100), "max_length", "Bio must be at most 100 characters"),
		),
		validation.Field(&rec.Files, coded(validation.Required, "min_items", "Upload at least one file")),
		validation.Field(&rec.Notifications, coded(validation.Required, "min_items", "Select at least one notification method")),
		validation.Field(&rec.Priority, coded(validation.Required, "required", "Priority is required")),
	)
}

// codedRule replaces the error of the wrapped rule with a stable code and
// message so translations can be keyed per rule.
type codedRule struct {
	rule    validation.Rule
	code    string
	message string
}

func coded(rule validation.Rule, code, message string) validation.Rule {
	return codedRule{rule: rule, code: code, message: message}
}

func (r codedRule) Validate(value any) error {
	err := r.rule.Validate(value)
	if err == nil {
		return nil
	}
	if _, internal := err.(validation.InternalError); internal {
		return err
	}
	return validation.NewError(r.code, r.message)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
