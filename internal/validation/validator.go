// Package validation wraps go-playground/validator and converts its
// failures into domain validation errors with per-field details.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/verbetes/verbete-server/internal/domain"
	domainerrors "github.com/verbetes/verbete-server/internal/errors"
)

// maxTextField bounds free-text metadata values.
const maxTextField = 500

// Validator validates request structs and verbete metadata.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with JSON field names and the verbete_date rule.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("verbete_date", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseVerbeteDate(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("verbete_type", func(fl validator.FieldLevel) bool {
		return domain.VerbeteType(fl.Field().String()).Valid()
	})

	return &Validator{v: v}
}

// Validate validates a struct.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Mode selects how strictly metadata is checked.
type Mode int

const (
	// Partial checks the format of present fields only. Used while drafting.
	Partial Mode = iota
	// Complete also requires every field the type marks as required.
	Complete
)

// Fields validates verbete metadata against the rules of t. Keys the type
// does not define are ignored.
func (v *Validator) Fields(t domain.VerbeteType, fields map[string]string, mode Mode) error {
	spec, ok := domain.SpecFor(t)
	if !ok {
		return domainerrors.Validationf("unknown verbete type %q", t)
	}

	data := make(map[string]any, len(spec.Fields))
	rules := make(map[string]any, len(spec.Fields))
	for _, f := range spec.Fields {
		data[f.Name] = strings.TrimSpace(fields[f.Name])
		rules[f.Name] = fieldRule(f, mode)
	}

	details := make(map[string]string)
	for name, result := range v.v.ValidateMap(data, rules) {
		err, ok := result.(error)
		if !ok {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			details[name] = friendlyMessage(fieldErrs[0])
		} else {
			details[name] = "is invalid"
		}
	}

	if spec.StartField != "" && spec.EndField != "" && details[spec.StartField] == "" && details[spec.EndField] == "" {
		start, okStart := domain.ParseVerbeteDate(fields[spec.StartField])
		end, okEnd := domain.ParseVerbeteDate(fields[spec.EndField])
		if okStart && okEnd && end.Before(start) {
			details[spec.EndField] = "must not be before " + spec.StartField
		}
	}

	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("validation failed", details)
	}
	return nil
}

// Patch validates a partial update of metadata: present values must be
// well formed, and a field required by the type may not be cleared.
func (v *Validator) Patch(t domain.VerbeteType, patch map[string]string) error {
	spec, ok := domain.SpecFor(t)
	if !ok {
		return domainerrors.Validationf("unknown verbete type %q", t)
	}

	details := make(map[string]string)
	for name, value := range patch {
		f, known := spec.Field(name)
		if !known {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			if f.Required {
				details[name] = "is required and cannot be cleared"
			}
			continue
		}
		if err := v.v.Var(value, fieldRule(f, Partial)); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				details[name] = friendlyMessage(fieldErrs[0])
			} else {
				details[name] = "is invalid"
			}
		}
	}

	if len(details) > 0 {
		return domainerrors.ValidationWithDetails("validation failed", details)
	}
	return nil
}

// MergeDetails combines the details of two validation errors. Either may
// be nil; a non-validation error is returned unchanged.
func MergeDetails(a, b error) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	da, okA := detailsOf(a)
	db, okB := detailsOf(b)
	if !okA {
		return a
	}
	if !okB {
		return b
	}
	merged := make(map[string]string, len(da)+len(db))
	for k, val := range da {
		merged[k] = val
	}
	for k, val := range db {
		merged[k] = val
	}
	return domainerrors.ValidationWithDetails("validation failed", merged)
}

func detailsOf(err error) (map[string]string, bool) {
	var de *domainerrors.Error
	if !errors.As(err, &de) || de.Code != domainerrors.CodeValidation {
		return nil, false
	}
	d, _ := de.Details.(map[string]string)
	return d, true
}

func fieldRule(f domain.FieldSpec, mode Mode) string {
	prefix := "omitempty"
	if mode == Complete && f.Required {
		prefix = "required"
	}
	switch f.Kind {
	case domain.FieldDate:
		return prefix + ",verbete_date"
	default:
		return fmt.Sprintf("%s,max=%d", prefix, maxTextField)
	}
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "verbete_date":
		return "must be a date in YYYY, YYYY-MM or YYYY-MM-DD format"
	case "verbete_type":
		return "must be a known verbete type"
	case "dive":
		return "contains an invalid element"
	default:
		return "is invalid"
	}
}
