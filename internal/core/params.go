package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type paramKind int

const (
	paramNone paramKind = iota
	paramString
	paramNumber
	paramBool
	paramList
)

// ParamValue is one extension parameter value. The value space is a
// restricted union: string, number, boolean, or list of strings. Anything
// else fails to unmarshal, keeping extension maps typed rather than an
// unconstrained dynamic bag.
type ParamValue struct {
	kind paramKind
	str  string
	num  float64
	b    bool
	list []string
}

// StringParam returns a ParamValue holding a string.
func StringParam(s string) ParamValue { return ParamValue{kind: paramString, str: s} }

// NumberParam returns a ParamValue holding a number.
func NumberParam(n float64) ParamValue { return ParamValue{kind: paramNumber, num: n} }

// BoolParam returns a ParamValue holding a boolean.
func BoolParam(b bool) ParamValue { return ParamValue{kind: paramBool, b: b} }

// ListParam returns a ParamValue holding a list of strings.
func ListParam(items ...string) ParamValue { return ParamValue{kind: paramList, list: items} }

// IsZero reports whether the value is unset.
func (v ParamValue) IsZero() bool { return v.kind == paramNone }

// Value returns the contained value as its natural Go type
// (string, float64, bool, or []string), or nil if unset.
func (v ParamValue) Value() any {
	switch v.kind {
	case paramString:
		return v.str
	case paramNumber:
		return v.num
	case paramBool:
		return v.b
	case paramList:
		return v.list
	}
	return nil
}

// String returns the rendered text form of the value, used when a
// template substitutes it into a prompt.
func (v ParamValue) String() string {
	switch v.kind {
	case paramString:
		return v.str
	case paramNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case paramBool:
		return strconv.FormatBool(v.b)
	case paramList:
		return strings.Join(v.list, ", ")
	}
	return ""
}

// MarshalJSON implements json.Marshaler.
func (v ParamValue) MarshalJSON() ([]byte, error) {
	val := v.Value()
	if val == nil {
		return []byte("null"), nil
	}
	return json.Marshal(val)
}

// UnmarshalJSON implements json.Unmarshaler, rejecting values outside
// the string/number/boolean/list-of-strings union.
func (v *ParamValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pv, err := paramFromAny(raw)
	if err != nil {
		return err
	}
	*v = pv
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v ParamValue) MarshalYAML() (any, error) {
	return v.Value(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *ParamValue) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	pv, err := paramFromAny(raw)
	if err != nil {
		return err
	}
	*v = pv
	return nil
}

func paramFromAny(raw any) (ParamValue, error) {
	switch val := raw.(type) {
	case nil:
		return ParamValue{}, nil
	case string:
		return StringParam(val), nil
	case float64:
		return NumberParam(val), nil
	case int:
		return NumberParam(float64(val)), nil
	case int64:
		return NumberParam(float64(val)), nil
	case bool:
		return BoolParam(val), nil
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return ParamValue{}, fmt.Errorf("param list element %d: want string, got %T", i, item)
			}
			items[i] = s
		}
		return ParamValue{kind: paramList, list: items}, nil
	default:
		return ParamValue{}, fmt.Errorf("unsupported param value type %T", raw)
	}
}
