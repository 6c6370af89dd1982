package tools

import (
	"fmt"
	"math"

	"github.com/vstudent/schedule-agent/internal/domain"
)

// Argument coercion helpers. Model-supplied arguments arrive as generic JSON
// values; numbers in particular always decode as float64.

// GetString returns the named string argument, or an error when it is absent
// or not a string.
func GetString(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", domain.ErrInvalidArgument, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", domain.ErrInvalidArgument, name)
	}
	return s, nil
}

// OptString returns the named string argument, or fallback when absent.
func OptString(args map[string]any, name, fallback string) string {
	if s, ok := args[name].(string); ok {
		return s
	}
	return fallback
}

// GetInt returns the named integer argument.
func GetInt(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing argument %q", domain.ErrInvalidArgument, name)
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: argument %q must be an integer", domain.ErrInvalidArgument, name)
		}
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: argument %q must be a number", domain.ErrInvalidArgument, name)
	}
}

// OptInt returns the named integer argument, or fallback when absent or not
// a whole number.
func OptInt(args map[string]any, name string, fallback int) int {
	n, err := GetInt(args, name)
	if err != nil {
		return fallback
	}
	return n
}

// OptBool returns the named boolean argument, or fallback when absent.
func OptBool(args map[string]any, name string, fallback bool) bool {
	if b, ok := args[name].(bool); ok {
		return b
	}
	return fallback
}

// GetMap returns the named object argument.
func GetMap(args map[string]any, name string) (map[string]any, error) {
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing argument %q", domain.ErrInvalidArgument, name)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: argument %q must be an object", domain.ErrInvalidArgument, name)
	}
	return m, nil
}
