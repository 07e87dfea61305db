// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the settings surface every stage reads through
// (spec §6): a narrow ConfigHandle abstraction plus the enumerations
// named in the "Configuration surface" table. Concrete XML/YAML tree
// parsing is explicitly out of scope (spec §1 treats it as an external
// collaborator); the only ConfigHandle shipped here is an in-memory map,
// sufficient for tests and for callers who already parsed their own
// configuration format.
package config

import (
	"strconv"
)

// ConfigHandle is the read-only settings tree a stage's ReadSettings
// pulls named scalars, vectors, and child-stage references from.
type ConfigHandle interface {
	// GetString returns the named option, and whether it was present.
	GetString(name string) (string, bool)
	// GetFloat64 parses the named option as a float64.
	GetFloat64(name string) (float64, bool, error)
	// GetInt parses the named option as an int.
	GetInt(name string) (int, bool, error)
	// GetUint parses the named option as a uint.
	GetUint(name string) (uint, bool, error)
	// GetBool parses the named option as a bool.
	GetBool(name string) (bool, bool, error)
	// GetStringList returns the named option split on commas.
	GetStringList(name string) ([]string, bool)
	// GetStageList returns the ordered list of child-stage names
	// registered under name (e.g. the reclustering driver's configured
	// list of clustering variants to iterate, spec §4.G.3).
	GetStageList(name string) ([]string, bool)
}

// MapConfigHandle is a ConfigHandle backed by a flat string map, the
// concrete handle used by tests and by embedders that parse their own
// configuration into a map before constructing the engine.
type MapConfigHandle struct {
	values     map[string]string
	stageLists map[string][]string
}

// NewMapConfigHandle returns a handle over values (scalar/vector options)
// and stageLists (named ordered child-stage references).
func NewMapConfigHandle(values map[string]string, stageLists map[string][]string) *MapConfigHandle {
	if values == nil {
		values = map[string]string{}
	}
	if stageLists == nil {
		stageLists = map[string][]string{}
	}
	return &MapConfigHandle{values: values, stageLists: stageLists}
}

func (h *MapConfigHandle) GetString(name string) (string, bool) {
	v, ok := h.values[name]
	return v, ok
}

func (h *MapConfigHandle) GetFloat64(name string) (float64, bool, error) {
	raw, ok := h.values[name]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, true, err
}

func (h *MapConfigHandle) GetInt(name string) (int, bool, error) {
	raw, ok := h.values[name]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	return v, true, err
}

func (h *MapConfigHandle) GetUint(name string) (uint, bool, error) {
	raw, ok := h.values[name]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	return uint(v), true, err
}

func (h *MapConfigHandle) GetBool(name string) (bool, bool, error) {
	raw, ok := h.values[name]
	if !ok {
		return false, false, nil
	}
	v, err := strconv.ParseBool(raw)
	return v, true, err
}

func (h *MapConfigHandle) GetStringList(name string) ([]string, bool) {
	raw, ok := h.values[name]
	if !ok {
		return nil, false
	}
	return splitNonEmpty(raw, ','), true
}

func (h *MapConfigHandle) GetStageList(name string) ([]string, bool) {
	list, ok := h.stageLists[name]
	return list, ok
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
