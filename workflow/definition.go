// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"fmt"
	"math"
)

// StepDefinition is one configured step of a workflow: which plugin runs,
// with which parameters, reading and writing which context keys.
// A definition is not modified once the workflow graph is built.
type StepDefinition struct {
	ID         string
	PluginID   string
	Parameters map[string]Param
	Inputs     map[string]string
	Outputs    map[string]string
}

// ParamType names the variant held by a [Param].
type ParamType uint8

const (
	ParamNumber ParamType = iota + 1
	ParamString
)

func (t ParamType) String() string {
	switch t {
	case ParamNumber:
		return "number"
	case ParamString:
		return "string"
	default:
		return "unknown"
	}
}

// Param is a literal step parameter: a number or a string.
type Param struct {
	typ ParamType
	num float64
	str string
}

// NumberParam returns a number parameter.
func NumberParam(v float64) Param { return Param{typ: ParamNumber, num: v} }

// StringParam returns a string parameter.
func StringParam(v string) Param { return Param{typ: ParamString, str: v} }

// Type returns the parameter variant.
func (p Param) Type() ParamType { return p.typ }

// ParamFromAny converts a decoded YAML or JSON scalar into a Param.
func ParamFromAny(v any) (Param, error) {
	switch x := v.(type) {
	case float64:
		return NumberParam(x), nil
	case float32:
		return NumberParam(float64(x)), nil
	case int:
		return NumberParam(float64(x)), nil
	case int64:
		return NumberParam(float64(x)), nil
	case uint64:
		return NumberParam(float64(x)), nil
	case string:
		return StringParam(x), nil
	default:
		return Param{}, fmt.Errorf("unsupported parameter type %T (want number or string)", v)
	}
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}
