// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import "math"

// Params resolves the number and string parameters of one step
// definition. Lookups return the default when a parameter is absent;
// present parameters of the wrong type are configuration errors.
type Params struct {
	def *StepDefinition
}

// ParamsOf returns the parameter resolver for def.
func ParamsOf(def *StepDefinition) Params {
	return Params{def: def}
}

// Find returns the named parameter.
func (p Params) Find(name string) (Param, bool) {
	if p.def == nil || p.def.Parameters == nil {
		return Param{}, false
	}
	v, ok := p.def.Parameters[name]
	return v, ok
}

func (p Params) mistyped(name string, want ParamType) error {
	return Errorf(KindConfiguration, "workflow step '%s' parameter '%s' must be a %s", p.def.ID, name, want)
}

// Number returns the named number parameter, or def when absent.
func (p Params) Number(name string, def float64) (float64, error) {
	v, ok := p.Find(name)
	if !ok {
		return def, nil
	}
	if v.typ != ParamNumber {
		return 0, p.mistyped(name, ParamNumber)
	}
	return v.num, nil
}

// Int returns the named number parameter as an int, or def when absent.
// Non-integral values are configuration errors.
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p.Find(name)
	if !ok {
		return def, nil
	}
	if v.typ != ParamNumber {
		return 0, p.mistyped(name, ParamNumber)
	}
	if !isIntegral(v.num) || math.Abs(v.num) > math.MaxInt32 {
		return 0, Errorf(KindConfiguration, "workflow step '%s' parameter '%s' must be an integer", p.def.ID, name)
	}
	return int(v.num), nil
}

// String returns the named string parameter, or def when absent.
func (p Params) String(name, def string) (string, error) {
	v, ok := p.Find(name)
	if !ok {
		return def, nil
	}
	if v.typ != ParamString {
		return "", p.mistyped(name, ParamString)
	}
	return v.str, nil
}
