// Package expression implements variable substitution and binary condition
// evaluation over the execution's key/value context.
package expression

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Operators probed in fixed order against the substituted string. The
// first match wins, so "!=" must come before any future single-character
// additions that could shadow it.
var operators = []string{"==", "!=", ">", "<"}

// Substitute replaces every {{name}} token with variables[name], falling
// back to context[name]. Unresolved tokens are left verbatim; substitution
// never fails.
func Substitute(text string, variables, context map[string]any) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimSpace(tokenPattern.FindStringSubmatch(token)[1])

		if v, ok := variables[name]; ok {
			return stringify(v)
		}

		if v, ok := context[name]; ok {
			return stringify(v)
		}

		return token
	})
}

// SubstituteValue applies Substitute recursively through nested maps and
// slices, as found in node config blocks. Non-string leaves pass through.
func SubstituteValue(value any, variables, context map[string]any) any {
	switch v := value.(type) {
	case string:
		return Substitute(v, variables, context)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = SubstituteValue(item, variables, context)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = SubstituteValue(item, variables, context)
		}

		return out
	default:
		return value
	}
}

// Evaluate substitutes the condition text and applies the first operator
// found among ==, !=, >, < (in that order) against the literal substituted
// string. > and < compare numerically, == and != compare as strings.
//
// A condition matching no operator evaluates to true. This permissive
// fallback is deliberate: edges without a parseable guard fire. Callers
// needing strict conditions must validate expressions at template-save
// time.
func Evaluate(condition string, variables, context map[string]any) bool {
	substituted := Substitute(condition, variables, context)

	for _, op := range operators {
		idx := strings.Index(substituted, op)
		if idx < 0 {
			continue
		}

		left := strings.TrimSpace(substituted[:idx])
		right := strings.TrimSpace(substituted[idx+len(op):])

		switch op {
		case "==":
			return left == right
		case "!=":
			return left != right
		case ">", "<":
			return compareNumeric(op, left, right)
		}
	}

	return true
}

func compareNumeric(op, left, right string) bool {
	l, errL := strconv.ParseFloat(left, 64)
	r, errR := strconv.ParseFloat(right, 64)

	if errL != nil || errR != nil {
		return false
	}

	if op == ">" {
		return l > r
	}

	return l < r
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// Render whole floats without a trailing ".0" so substituted text
		// matches what template authors wrote.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}

		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
