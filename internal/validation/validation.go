package validation

import "strings"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

// Percent accepts 0..100 inclusive.
func Percent(field string, val float64, v Violations) {
	if val < 0 || val > 100 {
		v[field] = "out_of_range"
	}
}

// OneOfFloat requires at least one of the named fields to be set (non-nil).
// Used for either/or payloads such as a price rule carrying a unit price or a
// margin override.
func OneOfFloat(v Violations, fields map[string]*float64) {
	for _, val := range fields {
		if val != nil {
			return
		}
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	v[strings.Join(sorted(names), "|")] = "one_required"
}

func sorted(s []string) []string {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
	return s
}
