// Copyright (C) 2019-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log provides the logging handles threaded through every
// reconstruction stage. It re-exports github.com/luxfi/log.Logger rather
// than wrapping it, and adds the stage-scoping helper stages use to
// attach a component field the way the pipeline driver expects.
package log

import (
	"github.com/luxfi/log"
	"go.uber.org/zap"
)

// Logger is the interface the pipeline driver holds and hands to every
// stage through engine.RunContext. Nothing in this module logs through a
// package level logger.
type Logger = log.Logger

// NewNoOp returns a logger that discards everything, used by ForStage
// and ForEvent when they are given a nil base logger (e.g. in unit tests).
func NewNoOp() Logger {
	return log.NewNoOpLogger()
}

// ForStage returns a child logger scoped to the named stage, mirroring
// the teacher's convention of attaching structured fields at
// construction time rather than per call site.
func ForStage(base Logger, stageName string) Logger {
	if base == nil {
		base = NewNoOp()
	}
	return base.WithFields(zap.String("stage", stageName))
}

// ForEvent returns a child logger additionally scoped to one event id,
// used by the pipeline driver so every line emitted while processing an
// event can be grepped back to it.
func ForEvent(base Logger, stageName string, eventID uint64) Logger {
	if base == nil {
		base = NewNoOp()
	}
	return base.WithFields(zap.String("stage", stageName), zap.Uint64("event", eventID))
}
