package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"chatcore/internal/core"
)

// placeholderRe matches one {{ name }} occurrence; whitespace around the
// name inside the braces is ignored.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// anyPlaceholderRe matches any {{...}} pattern left after substitution.
var anyPlaceholderRe = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// RenderTemplate renders a template string against the supplied variables.
// Declared variables marked required and absent from vars substitute their
// default, or fail with *MissingVariableError when they have none.
// Placeholders with no value are preserved verbatim and reported as a
// warning, not a failure: authoring-time validation must not block
// runtime rendering.
func (m *Manager) RenderTemplate(body string, vars map[string]any, declared []Variable) (string, error) {
	effective := make(map[string]any, len(vars))
	for name, value := range vars {
		effective[name] = value
	}

	for _, v := range declared {
		if !v.Required {
			continue
		}
		if _, ok := effective[v.Name]; ok {
			continue
		}
		if v.Default == nil {
			return "", &MissingVariableError{Name: v.Name}
		}
		effective[v.Name] = *v.Default
	}

	rendered := placeholderRe.ReplaceAllStringFunc(body, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		value, ok := effective[name]
		if !ok {
			return match
		}
		return formatValue(value)
	})

	if leftover := anyPlaceholderRe.FindAllString(rendered, -1); len(leftover) > 0 {
		m.logger.Warn("rendered template has unreplaced placeholders",
			"placeholders", strings.Join(leftover, " "))
	}
	return rendered, nil
}

// ExtractVariables returns the variable names referenced via {{...}}
// syntax, in order of first appearance, duplicates removed.
func (m *Manager) ExtractVariables(body string) []string {
	matches := placeholderRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, match := range matches {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Validate checks a template string against its declared variables:
// every used variable must be declared, and every required variable must
// be used. Validation never mutates anything and is independent of
// rendering; a template can render fine while failing validation.
func (m *Manager) Validate(body string, declared []Variable) ValidationResult {
	declaredSet := make(map[string]bool, len(declared))
	for _, v := range declared {
		declaredSet[v.Name] = true
	}

	used := m.ExtractVariables(body)
	usedSet := make(map[string]bool, len(used))
	var errs []string
	for _, name := range used {
		usedSet[name] = true
		if !declaredSet[name] {
			errs = append(errs, fmt.Sprintf("undeclared variable: %s", name))
		}
	}
	for _, v := range declared {
		if v.Required && !usedSet[v.Name] {
			errs = append(errs, fmt.Sprintf("required variable not used: %s", v.Name))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// formatValue converts a variable value to its substituted text form.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case core.ParamValue:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
