// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "errors"

// Error variables for configuration problems. The ReadSettings
// implementations in this module do not return them. Grounded on the teacher's config.ErrInvalidK-style sentinel
// list: flat, package-level, wrapped with context at the call site.
var (
	ErrOptionMissing    = errors.New("required configuration option missing")
	ErrOptionOutOfRange = errors.New("configuration option out of range")
	ErrOptionMalformed  = errors.New("configuration option malformed")
	ErrUnknownStageType = errors.New("unknown stage type in registry")
)
