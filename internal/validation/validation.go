package validation

import (
	"strings"

	"github.com/diewo77/subtrack/internal/dates"
)

// Violations accumulates field -> error-code pairs across validators.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

// DateField requires a well-formed YYYY-MM-DD value.
func DateField(field, value string, v Violations) {
	if _, err := dates.Parse(value); err != nil {
		v[field] = "invalid_date"
	}
}
