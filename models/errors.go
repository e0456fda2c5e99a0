package models

import (
	"errors"
	"fmt"
	"strings"
)

// StructuralParseError reports an input whose header or data block does not
// match the declared layout.
type StructuralParseError struct {
	Path   string
	Field  string
	Reason string
}

func (e *StructuralParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// ChannelMappingError reports roles that no channel description matched, or
// that more than one matched.
type ChannelMappingError struct {
	Path      string
	Missing   []Role
	Duplicate []Role
}

func (e *ChannelMappingError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+joinRoles(e.Missing))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate "+joinRoles(e.Duplicate))
	}
	return fmt.Sprintf("%s: channel mapping: %s", e.Path, strings.Join(parts, "; "))
}

func joinRoles(rs []Role) string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.String()
	}
	return strings.Join(names, ",")
}

// ParameterCoercionError reports a required numeric parameter that did not
// parse.
type ParameterCoercionError struct {
	Field string
	Value string
}

func (e *ParameterCoercionError) Error() string {
	return fmt.Sprintf("parameter %s: cannot use %q as a number", e.Field, e.Value)
}

// IOError wraps a file-system failure.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// EmptyWindowError reports a bias window that selects no samples.
type EmptyWindowError struct {
	Window BiasWindow
}

func (e *EmptyWindowError) Error() string {
	return fmt.Sprintf("bias window %s selects no samples", e.Window)
}

// ErrorKind is the coarse failure class surfaced in results.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindStructural     ErrorKind = "structural"
	KindChannelMapping ErrorKind = "channel_mapping"
	KindParameter      ErrorKind = "parameter"
	KindIO             ErrorKind = "io"
	KindBiasWindow     ErrorKind = "bias_window"
	KindSignalQuality  ErrorKind = "signal_quality"
	KindInternal       ErrorKind = "internal"
)

// Classify maps an error to its ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		se *StructuralParseError
		ce *ChannelMappingError
		pe *ParameterCoercionError
		ie *IOError
		we *EmptyWindowError
	)
	switch {
	case errors.As(err, &se):
		return KindStructural
	case errors.As(err, &ce):
		return KindChannelMapping
	case errors.As(err, &pe):
		return KindParameter
	case errors.As(err, &ie):
		return KindIO
	case errors.As(err, &we):
		return KindBiasWindow
	}
	return KindInternal
}
