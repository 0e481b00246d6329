package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"todolist/internal/model"
)

// Errors maps a JSON field name to human readable messages.
type Errors map[string][]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e[f], ", ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a message for field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Validator normalizes and checks drafts and patches.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Draft trims the draft and validates it. The normalized draft is returned
// even when validation fails.
func (v *Validator) Draft(d model.Draft) (model.Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = trimOptional(d.Description)
	if d.DueAt != nil {
		due := d.DueAt.UTC()
		d.DueAt = &due
	}
	return d, v.check(d)
}

type patchRules struct {
	Title       *string         `json:"title" validate:"omitempty,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=2000"`
	Priority    *model.Priority `json:"priority" validate:"omitempty,min=0,max=3"`
}

// Patch trims the patch and validates the fields that are set.
func (v *Validator) Patch(p model.Patch) (model.Patch, error) {
	errs := Errors{}
	if p.Title.Set {
		if p.Title.Value == nil || strings.TrimSpace(*p.Title.Value) == "" {
			errs.Add("title", "title is required")
		} else {
			title := strings.TrimSpace(*p.Title.Value)
			p.Title.Value = &title
		}
	}
	if p.Description.Set {
		p.Description.Value = trimOptional(p.Description.Value)
	}
	if p.DueAt.Set && p.DueAt.Value != nil {
		due := p.DueAt.Value.UTC()
		p.DueAt.Value = &due
	}

	rules := patchRules{Title: p.Title.Value, Description: p.Description.Value, Priority: p.Priority.Value}
	if err := v.check(rules); err != nil {
		var fieldErrs Errors
		if !errors.As(err, &fieldErrs) {
			return p, err
		}
		for f, msgs := range fieldErrs {
			for _, m := range msgs {
				errs.Add(f, m)
			}
		}
	}
	if len(errs) > 0 {
		return p, errs
	}
	return p, nil
}

func (v *Validator) check(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	errs := Errors{}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
