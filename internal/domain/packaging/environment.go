package packaging

import (
	"fmt"
	"sort"
)

// EnvVar is a single environment assignment passed to hooks.
type EnvVar struct {
	Key   string
	Value string
}

// String renders the pair as KEY=value without quoting.
func (v EnvVar) String() string {
	return v.Key + "=" + v.Value
}

// SortedEnvironment returns env as a slice ordered by key.
func SortedEnvironment(env map[string]string) []EnvVar {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	vars := make([]EnvVar, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, EnvVar{Key: k, Value: env[k]})
	}

	return vars
}

// ValidateEnvironment checks that every key is a portable shell identifier.
func ValidateEnvironment(env map[string]string) error {
	for _, v := range SortedEnvironment(env) {
		if !isIdentifier(v.Key) {
			return &ValidationError{
				Field:  "package.environment",
				Reason: fmt.Sprintf("%q is not a valid variable name", v.Key),
			}
		}
	}

	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
