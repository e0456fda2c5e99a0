package models

import (
	"math"
	"strconv"
	"strings"
)

// ParamPolicy decides what happens when a numeric parameter fails to parse.
type ParamPolicy string

const (
	// PolicyDefaultable silently substitutes the default.
	PolicyDefaultable ParamPolicy = "defaultable"
	// PolicyRequired surfaces a ParameterCoercionError.
	PolicyRequired ParamPolicy = "required"
)

// ParamSpec declares how one request parameter is coerced.
type ParamSpec struct {
	Policy  ParamPolicy `yaml:"policy" json:"policy"`
	Default float64     `yaml:"default" json:"default"`
}

// CoerceFloat parses raw according to spec. Blank input always yields the
// default. The second return reports whether the default was substituted.
func CoerceFloat(field, raw string, spec ParamSpec) (float64, bool, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return spec.Default, true, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v, false, nil
	}
	if spec.Policy == PolicyRequired {
		return 0, false, &ParameterCoercionError{Field: field, Value: raw}
	}
	return spec.Default, true, nil
}
