package model

import "time"

type Category string

const (
	CategoryHealth       Category = "health"
	CategoryFitness      Category = "fitness"
	CategoryProductivity Category = "productivity"
	CategoryLearning     Category = "learning"
	CategoryMindfulness  Category = "mindfulness"
	CategorySocial       Category = "social"
	CategoryFinance      Category = "finance"
	CategoryOther        Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryHealth, CategoryFitness, CategoryProductivity, CategoryLearning,
	CategoryMindfulness, CategorySocial, CategoryFinance, CategoryOther,
}

func (c Category) Label() string {
	switch c {
	case CategoryHealth:
		return "Health"
	case CategoryFitness:
		return "Fitness"
	case CategoryProductivity:
		return "Productivity"
	case CategoryLearning:
		return "Learning"
	case CategoryMindfulness:
		return "Mindfulness"
	case CategorySocial:
		return "Social"
	case CategoryFinance:
		return "Finance"
	default:
		return "Other"
	}
}

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

var Frequencies = []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyCustom}

func (f Frequency) Label() string {
	switch f {
	case FrequencyDaily:
		return "Daily"
	case FrequencyWeekly:
		return "Weekly"
	default:
		return "Custom Days"
	}
}

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Defaults applied when a create request leaves a field empty.
const (
	DefaultColor  = "#10B981"
	DefaultIcon   = "check"
	DefaultTarget = 1
)

// Palette is the set of colors offered by the habit form.
var Palette = []string{
	"#10B981", "#3B82F6", "#F59E0B", "#EF4444",
	"#8B5CF6", "#EC4899", "#14B8A6", "#F97316",
}

type Habit struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Category        Category  `json:"category"`
	Frequency       Frequency `json:"frequency"`
	FrequencyDays   []int     `json:"frequency_days"`
	TargetPerPeriod int       `json:"target_per_period"`
	Color           string    `json:"color"`
	Icon            string    `json:"icon"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DescriptionText returns the description or "" when unset.
func (h Habit) DescriptionText() string {
	if h.Description == nil {
		return ""
	}
	return *h.Description
}

func (h Habit) Archived() bool {
	return h.Status == StatusArchived
}

// HasDay reports whether weekday index d is in the habit's day set.
func (h Habit) HasDay(d int) bool {
	for _, day := range h.FrequencyDays {
		if day == d {
			return true
		}
	}
	return false
}

// HabitInput is the full set of user-editable fields, as submitted by the
// create and edit forms.
type HabitInput struct {
	Name            string    `json:"name" validate:"required,max=100"`
	Description     string    `json:"description" validate:"max=500"`
	Category        Category  `json:"category" validate:"required,oneof=health fitness productivity learning mindfulness social finance other"`
	Frequency       Frequency `json:"frequency" validate:"required,oneof=daily weekly custom"`
	FrequencyDays   []int     `json:"frequency_days" validate:"dive,min=0,max=6"`
	TargetPerPeriod int       `json:"target_per_period" validate:"min=1,max=100"`
	Color           string    `json:"color" validate:"omitempty,hexcolor"`
	Icon            string    `json:"icon" validate:"max=50"`
}

// HabitPatch carries only the fields an update changes. Nil fields are left
// untouched by the store.
type HabitPatch struct {
	Name            *string    `json:"name,omitempty" validate:"omitnil,min=1,max=100"`
	Description     *string    `json:"description,omitempty" validate:"omitnil,max=500"`
	Category        *Category  `json:"category,omitempty" validate:"omitnil,oneof=health fitness productivity learning mindfulness social finance other"`
	Frequency       *Frequency `json:"frequency,omitempty" validate:"omitnil,oneof=daily weekly custom"`
	FrequencyDays   *[]int     `json:"frequency_days,omitempty" validate:"omitnil,dive,min=0,max=6"`
	TargetPerPeriod *int       `json:"target_per_period,omitempty" validate:"omitnil,min=1,max=100"`
	Color           *string    `json:"color,omitempty" validate:"omitnil,hexcolor"`
	Icon            *string    `json:"icon,omitempty" validate:"omitnil,max=50"`
	Status          *Status    `json:"status,omitempty" validate:"omitnil,oneof=active archived"`
}

// Empty reports whether the patch changes nothing.
func (p HabitPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.Frequency == nil && p.FrequencyDays == nil && p.TargetPerPeriod == nil &&
		p.Color == nil && p.Icon == nil && p.Status == nil
}

// Apply merges the patch into h and returns the result.
func (p HabitPatch) Apply(h Habit) Habit {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Description != nil {
		if *p.Description == "" {
			h.Description = nil
		} else {
			d := *p.Description
			h.Description = &d
		}
	}
	if p.Category != nil {
		h.Category = *p.Category
	}
	if p.Frequency != nil {
		h.Frequency = *p.Frequency
	}
	if p.FrequencyDays != nil {
		h.FrequencyDays = append([]int(nil), (*p.FrequencyDays)...)
	}
	if p.TargetPerPeriod != nil {
		h.TargetPerPeriod = *p.TargetPerPeriod
	}
	if p.Color != nil {
		h.Color = *p.Color
	}
	if p.Icon != nil {
		h.Icon = *p.Icon
	}
	if p.Status != nil {
		h.Status = *p.Status
	}
	return h
}
