package core

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParamValueJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   ParamValue
		json string
	}{
		{"string", StringParam("hello"), `"hello"`},
		{"number", NumberParam(0.7), `0.7`},
		{"bool", BoolParam(true), `true`},
		{"list", ListParam("a", "b"), `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			if string(data) != tt.json {
				t.Errorf("Marshal = %s, want %s", data, tt.json)
			}

			var out ParamValue
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if out.String() != tt.in.String() {
				t.Errorf("round trip = %q, want %q", out.String(), tt.in.String())
			}
		})
	}
}

func TestParamValueRejectsOutOfUnion(t *testing.T) {
	var v ParamValue
	if err := json.Unmarshal([]byte(`{"nested": "object"}`), &v); err == nil {
		t.Error("objects should be rejected")
	}
	if err := json.Unmarshal([]byte(`[1, 2]`), &v); err == nil {
		t.Error("non-string list elements should be rejected")
	}
}

func TestParamValueString(t *testing.T) {
	if got := NumberParam(30).String(); got != "30" {
		t.Errorf("NumberParam(30).String() = %q, want %q", got, "30")
	}
	if got := ListParam("x", "y").String(); got != "x, y" {
		t.Errorf("ListParam.String() = %q, want %q", got, "x, y")
	}
	if got := BoolParam(false).String(); got != "false" {
		t.Errorf("BoolParam.String() = %q, want %q", got, "false")
	}
	var zero ParamValue
	if !zero.IsZero() || zero.String() != "" {
		t.Error("zero value should be empty")
	}
}

func TestParamValueYAML(t *testing.T) {
	var v ParamValue
	if err := yaml.Unmarshal([]byte(`0.9`), &v); err != nil {
		t.Fatalf("yaml Unmarshal error: %v", err)
	}
	if v.String() != "0.9" {
		t.Errorf("String() = %q, want %q", v.String(), "0.9")
	}

	var params ModelParams
	doc := "temperature: 0.2\nextra:\n  stop: [\"END\"]\n"
	if err := yaml.Unmarshal([]byte(doc), &params); err != nil {
		t.Fatalf("yaml Unmarshal error: %v", err)
	}
	if params.Temperature == nil || *params.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", params.Temperature)
	}
	if got := params.Extra["stop"].String(); got != "END" {
		t.Errorf("Extra[stop] = %q, want %q", got, "END")
	}
}
