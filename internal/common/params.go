package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParamError reports a query parameter that could not be parsed.
type ParamError struct {
	Field   string
	Message string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// ParseIntParam parses an optional integer parameter, returning def when empty.
func ParseIntParam(value, fieldName string, def int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ParamError{Field: fieldName, Message: "must be an integer"}
	}
	return n, nil
}

// ParseFloatParam parses an optional number parameter, returning def when empty.
func ParseFloatParam(value, fieldName string, def float64) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ParamError{Field: fieldName, Message: "must be a number"}
	}
	return f, nil
}

// SplitList flattens repeated and comma separated values, dropping blanks.
func SplitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
