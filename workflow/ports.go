// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

// Direction says whether a port is read or written by a step.
type Direction uint8

const (
	In Direction = iota + 1
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "input"
	case Out:
		return "output"
	default:
		return "unknown"
	}
}

// PortSpec declares one named port of a step and the context value it
// carries. For ports that name a key family (texture or mesh base keys)
// Type is the variant stored under the base key's primary entry.
type PortSpec struct {
	Name      string
	Direction Direction
	Type      ValueType
	Required  bool
}

// Ports resolves the input and output ports of one step definition to
// context keys.
type Ports struct {
	def *StepDefinition
}

// PortsOf returns the port resolver for def.
func PortsOf(def *StepDefinition) Ports {
	return Ports{def: def}
}

// RequiredInput returns the context key wired to input port.
func (p Ports) RequiredInput(port string) (string, error) {
	if k, ok := p.def.Inputs[port]; ok && k != "" {
		return k, nil
	}
	return "", Errorf(KindConfiguration, "workflow step '%s' missing input '%s'", p.def.ID, port)
}

// RequiredOutput returns the context key wired to output port.
func (p Ports) RequiredOutput(port string) (string, error) {
	if k, ok := p.def.Outputs[port]; ok && k != "" {
		return k, nil
	}
	return "", Errorf(KindConfiguration, "workflow step '%s' missing output '%s'", p.def.ID, port)
}
