// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordStep appends its definition id to a shared log and optionally fails.
type recordStep struct {
	id    string
	ports []PortSpec
	log   *[]string
	fail  error
}

func (s *recordStep) PluginID() string  { return s.id }
func (s *recordStep) Ports() []PortSpec { return s.ports }
func (s *recordStep) Execute(_ context.Context, def *StepDefinition, rc *Context) error {
	*s.log = append(*s.log, def.ID)
	if s.fail != nil {
		return s.fail
	}
	rc.SetString(def.ID, "done")
	return nil
}

func TestRegistryRegister(t *testing.T) {
	var log []string
	reg := NewRegistry()
	require.NoError(t, reg.Register(&recordStep{id: "b", log: &log}))
	require.NoError(t, reg.Register(&recordStep{id: "a", log: &log}))

	err := reg.Register(&recordStep{id: "a", log: &log})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Equal(t, []string{"a", "b"}, reg.PluginIDs())

	_, ok := reg.Lookup("a")
	assert.True(t, ok)
	_, ok = reg.Lookup("zzz")
	assert.False(t, ok)
}

func TestRegistryValidate(t *testing.T) {
	var log []string
	reg := NewRegistry()
	require.NoError(t, reg.Register(&recordStep{id: "texture.load", log: &log, ports: []PortSpec{
		{Name: "image_path", Direction: In, Type: TypeString, Required: true},
		{Name: "texture", Direction: Out, Type: TypeTexture, Required: true},
	}}))

	tests := []struct {
		name    string
		def     *StepDefinition
		wantErr string
	}{
		{
			name: "valid",
			def: &StepDefinition{ID: "l", PluginID: "texture.load",
				Inputs: map[string]string{"image_path": "p"}, Outputs: map[string]string{"texture": "t"}},
		},
		{
			name:    "unknown plugin",
			def:     &StepDefinition{ID: "l", PluginID: "nope"},
			wantErr: "unknown plugin 'nope'",
		},
		{
			name: "missing output",
			def: &StepDefinition{ID: "l", PluginID: "texture.load",
				Inputs: map[string]string{"image_path": "p"}},
			wantErr: "texture.load: workflow step 'l' missing output 'texture'",
		},
		{
			name: "undeclared input",
			def: &StepDefinition{ID: "l", PluginID: "texture.load",
				Inputs:  map[string]string{"image_path": "p", "extra": "x"},
				Outputs: map[string]string{"texture": "t"}},
			wantErr: "wires undeclared input 'extra'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Validate(tt.def)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunnerRunsInOrder(t *testing.T) {
	var log []string
	reg := NewRegistry()
	require.NoError(t, reg.Register(&recordStep{id: "s", log: &log}))

	rc := NewContext()
	defs := []*StepDefinition{{ID: "one", PluginID: "s"}, {ID: "two", PluginID: "s"}, {ID: "three", PluginID: "s"}}
	require.NoError(t, NewRunner(reg).Run(context.Background(), rc, defs))
	assert.Equal(t, []string{"one", "two", "three"}, log)
	assert.Equal(t, 3, rc.Len())
}

func TestRunnerStopsAtFirstError(t *testing.T) {
	var log []string
	reg := NewRegistry()
	require.NoError(t, reg.Register(&recordStep{id: "ok", log: &log}))
	require.NoError(t, reg.Register(&recordStep{id: "bad", log: &log, fail: Errorf(KindLogic, "boom")}))

	defs := []*StepDefinition{{ID: "a", PluginID: "ok"}, {ID: "b", PluginID: "bad"}, {ID: "c", PluginID: "ok"}}
	err := NewRunner(reg).Run(context.Background(), NewContext(), defs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLogic)
	assert.Equal(t, "bad: boom", err.Error())
	assert.Equal(t, []string{"a", "b"}, log)
}

func TestRunnerValidatesBeforeExecuting(t *testing.T) {
	var log []string
	reg := NewRegistry()
	require.NoError(t, reg.Register(&recordStep{id: "ok", log: &log}))

	defs := []*StepDefinition{{ID: "a", PluginID: "ok"}, {ID: "b", PluginID: "missing"}}
	err := NewRunner(reg).Run(context.Background(), NewContext(), defs)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, log)
}

func TestRunnerCancellation(t *testing.T) {
	var log []string
	reg := NewRegistry()
	require.NoError(t, reg.Register(&recordStep{id: "ok", log: &log}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRunner(reg).Run(ctx, NewContext(), []*StepDefinition{{ID: "a", PluginID: "ok"}})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.Empty(t, log)
}
