package domain

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report problems under the JSON field names the client sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationError rejects a draft whose values fall outside the allowed
// domains. The draft is not buffered and the cursor does not move.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("invalid annotation")
	for _, name := range names {
		fmt.Fprintf(&b, "; %s: %s", name, e.Fields[name])
	}
	return b.String()
}

// ValidateDraft checks the draft's value domains. When hasAnomaly is
// true the conditional fields must carry real answers; when false they
// are ignored here because Annotation forces them to "N/A" regardless.
func ValidateDraft(d Draft, hasAnomaly bool) error {
	fields := map[string]string{}

	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("while validating draft: %w", err)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
	}

	if hasAnomaly {
		switch d.TypeCorrectness {
		case CorrectnessCorrect, CorrectnessPartial, CorrectnessIncorrect:
		default:
			fields["type_correctness"] = "must be one of: correct, partial, incorrect"
		}
		if d.LocalizationScore < 1 || d.LocalizationScore > 5 {
			fields["localization_score"] = "must be between 1 and 5"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
