package habit

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/fittrack/internal/apperror"
	"github.com/dukerupert/fittrack/internal/model"
	"github.com/dukerupert/fittrack/internal/recurrence"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps "Field.tag" to the text shown under the form field. Keys are
// expanded for both HabitInput and HabitPatch below.
var fieldMessages = map[string]string{
	"Name.required":       "Name is required",
	"Name.min":            "Name is required",
	"Name.max":            "Name must be less than 100 characters",
	"Description.max":     "Description must be less than 500 characters",
	"Category.required":   "Category is required",
	"Category.oneof":      "Choose a valid category",
	"Frequency.required":  "Frequency is required",
	"Frequency.oneof":     "Choose a valid frequency",
	"FrequencyDays.min":   "Days must be between Sunday and Saturday",
	"FrequencyDays.max":   "Days must be between Sunday and Saturday",
	"TargetPerPeriod.min": "Target must be at least 1",
	"TargetPerPeriod.max": "Target must be less than 100",
	"Color.hexcolor":      "Color must be a hex value like #10B981",
	"Icon.max":            "Icon must be less than 50 characters",
	"Status.oneof":        "Status must be active or archived",
}

var messages = func() map[string]string {
	m := make(map[string]string, 2*len(fieldMessages))
	for k, v := range fieldMessages {
		m["HabitInput."+k] = v
		m["HabitPatch."+k] = v
	}
	return m
}()

const msgDaysRequired = "Select at least one day"

func jsonName(field string) string {
	if f, ok := reflect.TypeOf(model.HabitInput{}).FieldByName(field); ok {
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" {
			return name
		}
	}
	return strings.ToLower(field)
}

// DefaultInput returns a create form pre-filled with the default values.
func DefaultInput() model.HabitInput {
	return model.HabitInput{
		Category:        model.CategoryOther,
		Frequency:       model.FrequencyDaily,
		FrequencyDays:   []int{},
		TargetPerPeriod: model.DefaultTarget,
		Color:           model.DefaultColor,
		Icon:            model.DefaultIcon,
	}
}

// Normalize trims text fields, fills empty enums and display tokens with
// defaults, and sorts the weekday set.
func Normalize(in model.HabitInput) model.HabitInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Category == "" {
		in.Category = model.CategoryOther
	}
	if in.Frequency == "" {
		in.Frequency = model.FrequencyDaily
	}
	if in.Color == "" {
		in.Color = model.DefaultColor
	}
	if in.Icon == "" {
		in.Icon = model.DefaultIcon
	}
	in.FrequencyDays = recurrence.NormalizeDays(in.FrequencyDays)
	if in.Frequency == model.FrequencyDaily {
		in.FrequencyDays = []int{}
	}
	return in
}

// Validate checks a normalized create input. It returns
// apperror.ValidationErrors or nil.
func Validate(in model.HabitInput) error {
	var errs apperror.ValidationErrors
	if err := validate.Struct(in); err != nil {
		errs = apperror.FromValidator(err, messages, jsonName)
	}
	if in.Frequency == model.FrequencyCustom && len(in.FrequencyDays) == 0 {
		errs = append(errs, apperror.FieldError{Field: "frequency_days", Message: msgDaysRequired})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// NormalizePatch applies the same clean-up as Normalize to the fields a
// patch carries.
func NormalizePatch(p model.HabitPatch) model.HabitPatch {
	if p.Name != nil {
		s := strings.TrimSpace(*p.Name)
		p.Name = &s
	}
	if p.Description != nil {
		s := strings.TrimSpace(*p.Description)
		p.Description = &s
	}
	if p.FrequencyDays != nil {
		days := recurrence.NormalizeDays(*p.FrequencyDays)
		p.FrequencyDays = &days
	}
	return p
}

// ValidatePatch checks only the fields present in p. current, when known,
// is the record the patch will be merged into; it lets a frequency change
// be checked against the stored day set.
func ValidatePatch(p model.HabitPatch, current *model.Habit) error {
	var errs apperror.ValidationErrors
	if err := validate.Struct(p); err != nil {
		errs = apperror.FromValidator(err, messages, jsonName)
	}

	if p.Frequency != nil || p.FrequencyDays != nil {
		var merged model.Habit
		if current != nil {
			merged = *current
		}
		merged = p.Apply(merged)
		if merged.Frequency == model.FrequencyCustom && len(merged.FrequencyDays) == 0 {
			errs = append(errs, apperror.FieldError{Field: "frequency_days", Message: msgDaysRequired})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
