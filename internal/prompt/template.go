// Package prompt implements the prompt template engine: an in-memory
// catalog of named templates with declared variables, rendered by literal
// {{variable}} substitution. The catalog is volatile; Export/Import and
// LoadFile exist so callers can persist or seed it externally.
package prompt

import (
	"time"

	"chatcore/internal/core"
)

// VariableType is the declared type of a template variable.
type VariableType string

const (
	VariableString  VariableType = "string"
	VariableNumber  VariableType = "number"
	VariableBoolean VariableType = "boolean"
	VariableArray   VariableType = "array"
)

// Variable declares one template variable. Default, when set, substitutes
// for a missing required variable at render time.
type Variable struct {
	Name        string           `json:"name" yaml:"name"`
	Type        VariableType     `json:"type" yaml:"type"`
	Required    bool             `json:"required" yaml:"required"`
	Default     *core.ParamValue `json:"default,omitempty" yaml:"default,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
}

// Template is a reusable prompt with named placeholders. Body holds the
// template text; every {{placeholder}} in it should correspond to a
// declared variable (checked by Validate, not enforced at render time).
type Template struct {
	ID          string            `json:"id" yaml:"id,omitempty"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Body        string            `json:"template" yaml:"template"`
	Variables   []Variable        `json:"variables,omitempty" yaml:"variables,omitempty"`
	Category    string            `json:"category,omitempty" yaml:"category,omitempty"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	ModelID     string            `json:"model_id,omitempty" yaml:"model_id,omitempty"`
	Params      *core.ModelParams `json:"params,omitempty" yaml:"params,omitempty"`
	CreatedAt   time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty" yaml:"-"`
}

// Update is a partial template change. Nil fields are left untouched;
// ID and CreatedAt are immutable.
type Update struct {
	Name        *string
	Description *string
	Body        *string
	Variables   []Variable
	Category    *string
	Tags        []string
	ModelID     *string
	Params      *core.ModelParams
}

// ValidationResult reports authoring-time template checks.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func (t *Template) clone() *Template {
	cp := *t
	cp.Variables = append([]Variable(nil), t.Variables...)
	cp.Tags = append([]string(nil), t.Tags...)
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		cp.UpdatedAt = &u
	}
	if t.Params != nil {
		p := *t.Params
		cp.Params = &p
	}
	return &cp
}
